package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *PulpClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Options{BaseURL: server.URL, Username: "admin", Password: "password"})
}

func TestAbsoluteURLResolvesHrefs(t *testing.T) {
	c := New(Options{BaseURL: "http://pulp.example:24817/"})

	assert.Equal(t, "http://pulp.example:24817/pulp/api/v3/tasks/1/",
		c.AbsoluteURL("/pulp/api/v3/tasks/1/"))
	assert.Equal(t, "https://elsewhere.example/content/",
		c.AbsoluteURL("https://elsewhere.example/content/"),
		"absolute URLs pass through unchanged")
}

func TestRequestsCarryBasicAuth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "password", pass)
		_, _ = w.Write([]byte(`{}`))
	}))

	var out Object
	require.NoError(t, c.Get(context.Background(), "/anything/", &out))
}

func TestErrorResponsesBecomeAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Not found."}`))
	}))

	err := c.Get(context.Background(), "/pulp/api/v3/repositories/rpm/rpm/missing/", nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Not found")
	assert.Contains(t, apiErr.Error(), "404")
}

func TestObjectKeepsUnknownFields(t *testing.T) {
	data := []byte(`{
		"pulp_href": "/pulp/api/v3/repositories/rpm/rpm/1/",
		"name": "my-repo",
		"latest_version_href": "/pulp/api/v3/repositories/rpm/rpm/1/versions/2/"
	}`)
	var obj Object
	require.NoError(t, json.Unmarshal(data, &obj))

	assert.Equal(t, "/pulp/api/v3/repositories/rpm/rpm/1/", obj.Href)
	assert.Equal(t, "my-repo", obj.Name)
	assert.Equal(t, "/pulp/api/v3/repositories/rpm/rpm/1/versions/2/", obj.String("latest_version_href"))
	assert.Equal(t, "", obj.String("no_such_field"))
}

func TestObjectsAPICreateReadDelete(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, RepositoriesPath, r.URL.Path)
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "repo-1", body["name"])
			w.WriteHeader(http.StatusCreated)
			_, _ = fmt.Fprint(w, `{"pulp_href": "/pulp/api/v3/repositories/rpm/rpm/1/", "name": "repo-1"}`)
		case http.MethodGet:
			_, _ = fmt.Fprint(w, `{"pulp_href": "/pulp/api/v3/repositories/rpm/rpm/1/", "name": "repo-1"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusAccepted)
			_, _ = fmt.Fprint(w, `{"task": "/pulp/api/v3/tasks/9/"}`)
		}
	}))
	api := c.Repositories()

	created, err := api.Create(context.Background(), map[string]string{"name": "repo-1"})
	require.NoError(t, err)
	assert.Equal(t, "/pulp/api/v3/repositories/rpm/rpm/1/", created.Href)

	read, err := api.Read(context.Background(), created.Href)
	require.NoError(t, err)
	assert.Equal(t, "repo-1", read.Name)

	deleted, err := api.Delete(context.Background(), created.Href)
	require.NoError(t, err)
	assert.Equal(t, "/pulp/api/v3/tasks/9/", deleted.Task)
}

func TestObjectsAPIListPassesParams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "repo", r.URL.Query().Get("name__contains"))
		_, _ = fmt.Fprint(w, `{"count": 1, "results": [{"pulp_href": "/r/1/", "name": "repo-1"}]}`)
	}))

	list, err := c.Repositories().List(context.Background(),
		url.Values{"name__contains": {"repo"}})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Results, 1)
	assert.Equal(t, "repo-1", list.Results[0].Name)
}

func TestUploadFileSendsMultipartForm(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		form, err := mr.ReadForm(1 << 20)
		require.NoError(t, err)
		defer form.RemoveAll()

		require.Len(t, form.File["file"], 1)
		assert.Equal(t, "bear-4.1-1.noarch.rpm", form.File["file"][0].Filename)
		f, err := form.File["file"][0].Open()
		require.NoError(t, err)
		defer f.Close()
		contents, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "rpm bytes", string(contents))
		assert.Equal(t, []string{"bear-4.1-1.noarch.rpm"}, form.Value["relative_path"])

		w.WriteHeader(http.StatusAccepted)
		_, _ = fmt.Fprint(w, `{"task": "/pulp/api/v3/tasks/5/"}`)
	}))

	obj, err := c.UploadFile(context.Background(), PackagesPath,
		"bear-4.1-1.noarch.rpm", []byte("rpm bytes"),
		map[string]string{"relative_path": "bear-4.1-1.noarch.rpm"})
	require.NoError(t, err)
	assert.Equal(t, "/pulp/api/v3/tasks/5/", obj.Task)
}

func TestMonitorTaskWaitsForCompletion(t *testing.T) {
	var reads int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := "running"
		if atomic.AddInt32(&reads, 1) >= 2 {
			state = TaskCompleted
		}
		_, _ = fmt.Fprintf(w, `{
			"pulp_href": "/pulp/api/v3/tasks/5/",
			"state": %q,
			"created_resources": ["/pulp/api/v3/content/rpm/packages/1/"]
		}`, state)
	}))

	task, err := c.MonitorTask(context.Background(), "/pulp/api/v3/tasks/5/")
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, task.State)
	assert.Equal(t, []string{"/pulp/api/v3/content/rpm/packages/1/"}, task.CreatedResources)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&reads), int32(2))
}

func TestMonitorTaskReportsFailedState(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{
			"pulp_href": "/pulp/api/v3/tasks/6/",
			"state": "failed",
			"error": {"description": "sync failed"}
		}`)
	}))

	task, err := c.MonitorTask(context.Background(), "/pulp/api/v3/tasks/6/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	require.NotNil(t, task, "the task is returned so its error can be inspected")
	assert.Equal(t, TaskFailed, task.State)
}

func TestMonitorTaskStopsOnReadError(t *testing.T) {
	var reads int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&reads, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.MonitorTask(context.Background(), "/pulp/api/v3/tasks/7/")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reads),
		"a read error should not be retried")
}
