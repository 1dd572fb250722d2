package models

import "testing"

func TestIsValidResultTransition(t *testing.T) {
	tests := []struct {
		from     ResultStatus
		to       ResultStatus
		expected bool
	}{
		// Happy path
		{ResultPending, ResultStarted, true},
		{ResultStarted, ResultPassed, true},
		{ResultStarted, ResultFailed, true},
		{ResultStarted, ResultInvalidated, true},

		// Invalid transitions
		{ResultPending, ResultPassed, false},
		{ResultPending, ResultFailed, false},
		{ResultStarted, ResultStarted, false},
		{ResultPassed, ResultFailed, false},
		{ResultFailed, ResultStarted, false},
		{ResultInvalidated, ResultPassed, false},
		{ResultBlocked, ResultStarted, false},
		{ResultStatus(99), ResultStarted, false},
		{ResultPending, ResultStatus(99), false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			result := IsValidResultTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidResultTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestResultStatusIsFinished(t *testing.T) {
	finished := map[ResultStatus]bool{
		ResultPending:     false,
		ResultStarted:     false,
		ResultBlocked:     false,
		ResultPassed:      true,
		ResultFailed:      true,
		ResultInvalidated: true,
	}
	for s, want := range finished {
		if got := s.IsFinished(); got != want {
			t.Errorf("%s.IsFinished() = %v, want %v", s, got, want)
		}
	}
}

func TestIsValidStatusTransition(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		expected bool
	}{
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusDiscarded, true},
		{StatusActive, StatusLocked, true},
		{StatusLocked, StatusActive, true},
		{StatusActive, StatusClosed, true},

		{StatusDraft, StatusLocked, false},
		{StatusClosed, StatusActive, false},
		{StatusDiscarded, StatusActive, false},
		{StatusActive, StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := IsValidStatusTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidStatusTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestEntityColumnsMatchValues(t *testing.T) {
	entities := []interface {
		TableName() string
		Columns() []string
		Values() []any
		Targets() []any
	}{
		&TestCycle{}, &TestRun{}, &IncludedTestCase{}, &TestCaseAssignment{}, &TestResult{},
	}
	for _, e := range entities {
		t.Run(e.TableName(), func(t *testing.T) {
			n := len(e.Columns())
			if len(e.Values()) != n || len(e.Targets()) != n {
				t.Errorf("columns=%d values=%d targets=%d", n, len(e.Values()), len(e.Targets()))
			}
		})
	}
}
