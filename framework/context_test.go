package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	started  []string
	errors   []string
	finished map[string]bool
	skipped  map[string]string
}

func newRecordingTestLogger() *recordingTestLogger {
	return &recordingTestLogger{
		finished: map[string]bool{},
		skipped:  map[string]string{},
	}
}

func (l *recordingTestLogger) TestStarted(id TestID) {
	l.started = append(l.started, id.String())
}

func (l *recordingTestLogger) TestError(id TestID, err error) {
	l.errors = append(l.errors, err.Error())
}

func (l *recordingTestLogger) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	l.finished[id.String()] = failed
}

func (l *recordingTestLogger) TestSkipped(id TestID, reason string) {
	l.skipped[id.String()] = reason
}

func TestPassingSubtestIsRecorded(t *testing.T) {
	logger := newRecordingTestLogger()
	results := Run(RunConfig{TestLogger: logger}, func(c *Context) {
		c.Run("passes", func(c *Context) {})
	})

	assert.True(t, results.OK())
	failed, seen := logger.finished["passes"]
	assert.True(t, seen)
	assert.False(t, failed)
}

func TestErrorfRecordsFailureWithoutStopping(t *testing.T) {
	logger := newRecordingTestLogger()
	reachedEnd := false
	results := Run(RunConfig{TestLogger: logger}, func(c *Context) {
		c.Run("fails", func(c *Context) {
			c.Errorf("first problem")
			c.Errorf("second problem")
			reachedEnd = true
		})
	})

	assert.True(t, reachedEnd)
	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "fails", results.Failures[0].TestID.String())
	assert.Len(t, results.Failures[0].Errors, 2)
	assert.Equal(t, []string{"first problem", "second problem"}, logger.errors)
}

func TestFailNowStopsTheTest(t *testing.T) {
	logger := newRecordingTestLogger()
	reachedEnd := false
	results := Run(RunConfig{TestLogger: logger}, func(c *Context) {
		c.Run("fails fast", func(c *Context) {
			c.Errorf("fatal problem")
			c.FailNow()
			reachedEnd = true
		})
	})

	assert.False(t, reachedEnd)
	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Len(t, results.Failures[0].Errors, 1)
}

func TestFailNowWithoutMessageStillFails(t *testing.T) {
	results := Run(RunConfig{}, func(c *Context) {
		c.Run("silent failure", func(c *Context) {
			c.FailNow()
		})
	})

	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "no failure message")
}

func TestUnexpectedPanicBecomesFailure(t *testing.T) {
	results := Run(RunConfig{}, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic(errors.New("boom"))
		})
	})

	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "boom")
}

func TestSkippedTestIsNeitherPassedNorFailed(t *testing.T) {
	logger := newRecordingTestLogger()
	results := Run(RunConfig{TestLogger: logger}, func(c *Context) {
		c.Run("skips", func(c *Context) {
			c.SkipWithReason("not applicable here")
			c.Errorf("unreachable")
		})
	})

	assert.True(t, results.OK())
	assert.Equal(t, "not applicable here", logger.skipped["skips"])
	_, finished := logger.finished["skips"]
	assert.False(t, finished)
}

func TestResultsRecordSkippedTests(t *testing.T) {
	results := Run(RunConfig{}, func(c *Context) {
		c.Run("runs", func(c *Context) {})
		c.Run("skips", func(c *Context) { c.Skip() })
	})

	assert.Equal(t, 1, results.SkippedCount())
	// RunCount includes the top-level scope alongside the one subtest.
	assert.Equal(t, 2, results.RunCount())

	var skipped *TestResult
	for i := range results.Tests {
		if results.Tests[i].TestID.String() == "skips" {
			skipped = &results.Tests[i]
		}
	}
	require.NotNil(t, skipped, "skipped test missing from results")
	assert.True(t, skipped.Skipped)
	assert.Empty(t, skipped.Errors)
}

func TestDeferRunsInReverseOrderOnAllExitPaths(t *testing.T) {
	var order []string
	Run(RunConfig{}, func(c *Context) {
		c.Run("passes", func(c *Context) {
			c.Defer(func() { order = append(order, "pass-1") })
			c.Defer(func() { order = append(order, "pass-2") })
		})
		c.Run("fails", func(c *Context) {
			c.Defer(func() { order = append(order, "fail-1") })
			c.FailNow()
		})
		c.Run("skips", func(c *Context) {
			c.Defer(func() { order = append(order, "skip-1") })
			c.Skip()
		})
	})

	assert.Equal(t, []string{"pass-2", "pass-1", "fail-1", "skip-1"}, order)
}

func TestErrorfDuringCleanupCountsAgainstTheTest(t *testing.T) {
	results := Run(RunConfig{}, func(c *Context) {
		c.Run("leaks", func(c *Context) {
			c.Defer(func() { c.Errorf("resource left behind") })
		})
	})

	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "resource left behind")
}

func TestFilterExcludesSubtests(t *testing.T) {
	logger := newRecordingTestLogger()
	ran := []string{}
	filter := func(id TestID) bool { return id.String() != "excluded" }
	results := Run(RunConfig{TestLogger: logger, Filter: filter}, func(c *Context) {
		c.Run("included", func(c *Context) { ran = append(ran, "included") })
		c.Run("excluded", func(c *Context) { ran = append(ran, "excluded") })
	})

	assert.Equal(t, []string{"included"}, ran)
	assert.Equal(t, "excluded by filter parameters", logger.skipped["excluded"])
	assert.True(t, results.OK())
}

func TestRequireNightlyGatesTests(t *testing.T) {
	ranNormal := false
	Run(RunConfig{}, func(c *Context) {
		c.Run("nightly only", func(c *Context) {
			c.RequireNightly()
			ranNormal = true
		})
	})
	assert.False(t, ranNormal)

	ranNightly := false
	Run(RunConfig{NightlyEnabled: true}, func(c *Context) {
		c.Run("nightly only", func(c *Context) {
			c.RequireNightly()
			ranNightly = true
		})
	})
	assert.True(t, ranNightly)
}

func TestSubtestIDsIncludeParentPath(t *testing.T) {
	logger := newRecordingTestLogger()
	Run(RunConfig{TestLogger: logger}, func(c *Context) {
		c.Run("group", func(c *Context) {
			c.Run("case", func(c *Context) {})
		})
	})

	assert.Contains(t, logger.started, "group")
	assert.Contains(t, logger.started, "group/case")
}
