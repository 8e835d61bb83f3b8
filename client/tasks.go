package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Task states reported by the tasking system.
const (
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskCanceled  = "canceled"
)

const (
	taskPollInterval    = 500 * time.Millisecond
	taskPollMaxAttempts = 600 // five minutes at the poll interval
)

// Task is an asynchronous operation handle.
type Task struct {
	Href             string                 `json:"pulp_href"`
	State            string                 `json:"state"`
	CreatedResources []string               `json:"created_resources"`
	Error            map[string]interface{} `json:"error"`
}

func (t *Task) done() bool {
	switch t.State {
	case TaskCompleted, TaskFailed, TaskCanceled:
		return true
	}
	return false
}

// ReadTask fetches the current state of a task.
func (c *PulpClient) ReadTask(ctx context.Context, href string) (*Task, error) {
	var task Task
	if err := c.Get(ctx, href, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

var errTaskRunning = fmt.Errorf("task still running")

// MonitorTask polls a task until it reaches a final state. A task that ends
// in any state other than completed is reported as an error; the task data is
// still returned so callers can inspect it.
func (c *PulpClient) MonitorTask(ctx context.Context, href string) (*Task, error) {
	var task *Task
	poll := func() error {
		t, err := c.ReadTask(ctx, href)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !t.done() {
			return errTaskRunning
		}
		task = t
		return nil
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(taskPollInterval), taskPollMaxAttempts-1),
		ctx,
	)
	if err := backoff.Retry(poll, b); err != nil {
		return nil, fmt.Errorf("monitoring task %s: %w", href, err)
	}
	if task.State != TaskCompleted {
		return task, fmt.Errorf("task %s finished in state %q: %v", href, task.State, task.Error)
	}
	c.logger.Printf("task %s completed with %d created resources", href, len(task.CreatedResources))
	return task, nil
}
