package harness

import (
	"context"
	"fmt"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/framework"
)

// ResourceAPI is the slice of a resource collection's client that the
// cleanup tracker needs: deleting an object through the same API that
// created it, and reading created resources back.
type ResourceAPI interface {
	Create(ctx context.Context, body interface{}) (*client.Object, error)
	Read(ctx context.Context, href string) (*client.Object, error)
	Delete(ctx context.Context, href string) (*client.Object, error)
}

// TaskMonitor awaits completion of an asynchronous task by href.
type TaskMonitor func(ctx context.Context, href string) (*client.Task, error)

type cleanupEntry struct {
	api  ResourceAPI
	href string
}

// CleanupTracker records remote objects created by a test and deletes them
// after the test in reverse creation order, so that dependent objects go
// before the objects they depend on.
type CleanupTracker struct {
	monitor TaskMonitor
	logger  framework.Logger
	entries []cleanupEntry
}

func NewCleanupTracker(monitor TaskMonitor, logger framework.Logger) *CleanupTracker {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &CleanupTracker{monitor: monitor, logger: logger}
}

// Add records an object for deletion during Run.
func (t *CleanupTracker) Add(api ResourceAPI, href string) {
	t.entries = append(t.entries, cleanupEntry{api: api, href: href})
}

// Hrefs returns the locators of all currently tracked objects, in
// registration order.
func (t *CleanupTracker) Hrefs() []string {
	hrefs := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		hrefs = append(hrefs, e.href)
	}
	return hrefs
}

// Run deletes all tracked objects, newest first. Each deletion is attempted
// independently: a failure (including "already deleted", which cannot be
// reliably told apart from other API errors) is logged and skipped, never
// propagated. Deletions that return a task are collected and awaited before
// Run returns. The tracker is empty afterwards, so each entry is deleted at
// most once.
func (t *CleanupTracker) Run(ctx context.Context) {
	entries := t.entries
	t.entries = nil

	var deleteTaskHrefs []string
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		obj, err := e.api.Delete(ctx, e.href)
		if err != nil {
			// The object may already be gone, e.g. deleted by a cascading
			// delete of its parent.
			t.logger.Printf("cleanup: delete of %s failed: %s", e.href, err)
			continue
		}
		if obj != nil && obj.Task != "" {
			deleteTaskHrefs = append(deleteTaskHrefs, obj.Task)
		}
	}

	for _, taskHref := range deleteTaskHrefs {
		if _, err := t.monitor(ctx, taskHref); err != nil {
			t.logger.Printf("cleanup: delete task %s: %s", taskHref, err)
		}
	}
}

// CreateWithCleanup creates an object and registers it for cleanup. If the
// creating endpoint is task-based (the response carries a task href instead
// of an object href), the task is awaited, its created resources are fetched
// through the same API, and the first readable one is registered and
// returned. It is an error for a task to finish without any resource this
// API can read.
func (t *CleanupTracker) CreateWithCleanup(ctx context.Context, api ResourceAPI, body interface{}) (*client.Object, error) {
	obj, err := api.Create(ctx, body)
	if err != nil {
		return nil, err
	}
	if obj.Href != "" {
		t.Add(api, obj.Href)
		return obj, nil
	}
	if obj.Task == "" {
		return nil, fmt.Errorf("create response carried neither an object href nor a task href")
	}

	task, err := t.monitor(ctx, obj.Task)
	if err != nil {
		return nil, err
	}
	for _, resource := range task.CreatedResources {
		created, err := api.Read(ctx, resource)
		if err != nil {
			// Not the created resource this API serves; a task can create
			// several kinds of resources.
			continue
		}
		t.Add(api, created.Href)
		return created, nil
	}
	return nil, fmt.Errorf("no appropriate created resource found among %v for task %s",
		task.CreatedResources, task.Href)
}
