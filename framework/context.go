package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type environment struct {
	results        Results
	testLogger     TestLogger
	filter         Filter
	nightlyEnabled bool
}

// Context represents a running test or subtest. It is the lowest-level piece of
// the test runner; suite packages wrap it in their own T type.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	cleanups    []func()
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
}

// RunConfig contains the top-level options for a test run.
type RunConfig struct {
	Filter         Filter
	TestLogger     TestLogger
	NightlyEnabled bool
}

// Run executes a top-level test scope and returns the accumulated results.
func Run(config RunConfig, action func(*Context)) Results {
	testLogger := config.TestLogger
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:         config.Filter,
		testLogger:     testLogger,
		nightlyEnabled: config.NightlyEnabled,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		r := recover()
		c.runCleanups()
		if r != nil && c.skipped {
			c.env.results.Tests = append(c.env.results.Tests,
				TestResult{TestID: c.id, Skipped: true})
			return
		}
		if r != nil {
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		result := TestResult{TestID: c.id, Errors: c.errors}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

func (c *Context) runCleanups() {
	cleanups := c.cleanups
	c.cleanups = nil
	// Last registered runs first, like a stack of defers.
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest within this context.
func (c *Context) Run(name string, action func(*Context)) {
	id := TestID{Path: append(append([]string(nil), c.id.Path...), name)}

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

// Defer schedules a cleanup function to run when this test scope exits, on all
// exit paths including failure and skip. Cleanups run in last-in-first-out
// order.
func (c *Context) Defer(cleanup func()) {
	c.cleanups = append(c.cleanups, cleanup)
}

// Errorf records a test failure without stopping the test.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

// FailNow stops the test immediately. The methods of the require package call
// this.
func (c *Context) FailNow() {
	panic(c)
}

// Skip stops the test immediately and marks it as skipped rather than failed.
func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// RequireNightly skips the test unless the run was started with the nightly
// option.
func (c *Context) RequireNightly() {
	if !c.env.nightlyEnabled {
		c.SkipWithReason("nightly-only test; run with -nightly to enable")
	}
}

// Debug records debug output for this test, to be shown by the test logger
// depending on its configuration.
func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
