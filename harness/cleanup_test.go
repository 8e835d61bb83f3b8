package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulpqe/pulp-contract-tests/client"
)

// fakeAPI is a scripted ResourceAPI for cleanup tests.
type fakeAPI struct {
	deleted     []string
	failDeletes map[string]bool
	deleteTasks map[string]string
	createObj   *client.Object
	readable    map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		failDeletes: map[string]bool{},
		deleteTasks: map[string]string{},
		readable:    map[string]bool{},
	}
}

func (f *fakeAPI) Create(ctx context.Context, body interface{}) (*client.Object, error) {
	if f.createObj == nil {
		return nil, errors.New("create not scripted")
	}
	return f.createObj, nil
}

func (f *fakeAPI) Read(ctx context.Context, href string) (*client.Object, error) {
	if !f.readable[href] {
		return nil, fmt.Errorf("not found: %s", href)
	}
	return &client.Object{Href: href}, nil
}

func (f *fakeAPI) Delete(ctx context.Context, href string) (*client.Object, error) {
	f.deleted = append(f.deleted, href)
	if f.failDeletes[href] {
		return nil, fmt.Errorf("delete failed for %s", href)
	}
	return &client.Object{Task: f.deleteTasks[href]}, nil
}

type fakeMonitor struct {
	awaited []string
	tasks   map[string]*client.Task
	err     error
}

func (m *fakeMonitor) monitor(ctx context.Context, href string) (*client.Task, error) {
	m.awaited = append(m.awaited, href)
	if m.err != nil {
		return nil, m.err
	}
	if task, ok := m.tasks[href]; ok {
		return task, nil
	}
	return &client.Task{Href: href, State: client.TaskCompleted}, nil
}

func TestCleanupDeletesInReverseOrder(t *testing.T) {
	api := newFakeAPI()
	monitor := &fakeMonitor{}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	tracker.Add(api, "/a/")
	tracker.Add(api, "/b/")
	tracker.Add(api, "/c/")
	tracker.Run(context.Background())

	assert.Equal(t, []string{"/c/", "/b/", "/a/"}, api.deleted)
}

func TestCleanupFailureDoesNotBlockOtherEntries(t *testing.T) {
	api := newFakeAPI()
	api.failDeletes["/b/"] = true
	monitor := &fakeMonitor{}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	tracker.Add(api, "/a/")
	tracker.Add(api, "/b/")
	tracker.Add(api, "/c/")
	tracker.Run(context.Background())

	assert.Equal(t, []string{"/c/", "/b/", "/a/"}, api.deleted,
		"all deletions should be attempted even when one fails")
}

func TestCleanupDeletesAtMostOnce(t *testing.T) {
	api := newFakeAPI()
	monitor := &fakeMonitor{}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	tracker.Add(api, "/a/")
	tracker.Run(context.Background())
	tracker.Run(context.Background())

	assert.Equal(t, []string{"/a/"}, api.deleted)
}

func TestCleanupAwaitsDeleteTasks(t *testing.T) {
	api := newFakeAPI()
	api.deleteTasks["/a/"] = "/tasks/1/"
	api.deleteTasks["/c/"] = "/tasks/2/"
	monitor := &fakeMonitor{}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	tracker.Add(api, "/a/")
	tracker.Add(api, "/b/")
	tracker.Add(api, "/c/")
	tracker.Run(context.Background())

	assert.ElementsMatch(t, []string{"/tasks/1/", "/tasks/2/"}, monitor.awaited)
}

func TestCleanupSwallowsTaskMonitorErrors(t *testing.T) {
	api := newFakeAPI()
	api.deleteTasks["/a/"] = "/tasks/1/"
	monitor := &fakeMonitor{err: errors.New("task failed")}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	tracker.Add(api, "/a/")
	tracker.Run(context.Background()) // must not panic or propagate
	assert.Equal(t, []string{"/tasks/1/"}, monitor.awaited)
}

func TestCreateWithCleanupDirectObject(t *testing.T) {
	api := newFakeAPI()
	api.createObj = &client.Object{Href: "/repos/1/"}
	monitor := &fakeMonitor{}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	obj, err := tracker.CreateWithCleanup(context.Background(), api, nil)
	require.NoError(t, err)
	assert.Equal(t, "/repos/1/", obj.Href)
	assert.Equal(t, []string{"/repos/1/"}, tracker.Hrefs())
}

func TestCreateWithCleanupTaskBased(t *testing.T) {
	api := newFakeAPI()
	api.createObj = &client.Object{Task: "/tasks/9/"}
	api.readable["/content/2/"] = true
	monitor := &fakeMonitor{
		tasks: map[string]*client.Task{
			"/tasks/9/": {
				Href:             "/tasks/9/",
				State:            client.TaskCompleted,
				CreatedResources: []string{"/versions/1/", "/content/2/"},
			},
		},
	}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	obj, err := tracker.CreateWithCleanup(context.Background(), api, nil)
	require.NoError(t, err)
	assert.Equal(t, "/content/2/", obj.Href,
		"the first resource readable through this API should be returned")
	assert.Equal(t, []string{"/content/2/"}, tracker.Hrefs())
}

func TestCreateWithCleanupNoReadableResource(t *testing.T) {
	api := newFakeAPI()
	api.createObj = &client.Object{Task: "/tasks/9/"}
	monitor := &fakeMonitor{
		tasks: map[string]*client.Task{
			"/tasks/9/": {
				Href:             "/tasks/9/",
				State:            client.TaskCompleted,
				CreatedResources: []string{"/versions/1/"},
			},
		},
	}
	tracker := NewCleanupTracker(monitor.monitor, nil)

	_, err := tracker.CreateWithCleanup(context.Background(), api, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no appropriate created resource")
	assert.Empty(t, tracker.Hrefs())
}
