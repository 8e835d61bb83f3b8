package framework

import (
	"strings"
)

// Results accumulates the outcome of a test run. Every test that was entered
// appears in Tests, including skipped ones; Failures holds the failed subset.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// RunCount is the number of tests that actually executed.
func (r Results) RunCount() int {
	return len(r.Tests) - r.SkippedCount()
}

// SkippedCount is the number of tests that were entered but skipped.
func (r Results) SkippedCount() int {
	n := 0
	for _, t := range r.Tests {
		if t.Skipped {
			n++
		}
	}
	return n
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}
