package models

// Status is the lifecycle status shared by test cycles and test runs
// (static data TESTCYCLESTATUS / TESTRUNSTATUS).
type Status int

const (
	StatusDraft     Status = 1
	StatusActive    Status = 2
	StatusLocked    Status = 3
	StatusClosed    Status = 4
	StatusDiscarded Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusLocked:
		return "locked"
	case StatusClosed:
		return "closed"
	case StatusDiscarded:
		return "discarded"
	}
	return "unknown"
}

// ResultStatus is static data TESTRUNRESULTSTATUS.
type ResultStatus int

const (
	ResultPending     ResultStatus = 1
	ResultPassed      ResultStatus = 2
	ResultFailed      ResultStatus = 3
	ResultBlocked     ResultStatus = 4
	ResultStarted     ResultStatus = 5
	ResultInvalidated ResultStatus = 6
)

func (s ResultStatus) String() string {
	switch s {
	case ResultPending:
		return "pending"
	case ResultPassed:
		return "passed"
	case ResultFailed:
		return "failed"
	case ResultBlocked:
		return "blocked"
	case ResultStarted:
		return "started"
	case ResultInvalidated:
		return "invalidated"
	}
	return "unknown"
}

// ApprovalStatus is static data APPROVALSTATUS.
type ApprovalStatus int

const (
	ApprovalPending  ApprovalStatus = 1
	ApprovalApproved ApprovalStatus = 2
	ApprovalRejected ApprovalStatus = 3
)

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	}
	return "unknown"
}

// Valid result transitions: from -> []to
var ValidResultTransitions = map[ResultStatus][]ResultStatus{
	ResultPending:     {ResultStarted},
	ResultStarted:     {ResultPassed, ResultFailed, ResultInvalidated},
	ResultPassed:      {},
	ResultFailed:      {},
	ResultBlocked:     {},
	ResultInvalidated: {},
}

func IsValidResultTransition(from, to ResultStatus) bool {
	allowed, ok := ValidResultTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// FinishedResultStatuses are the statuses a result can be approved or
// rejected in.
var FinishedResultStatuses = []ResultStatus{ResultPassed, ResultFailed, ResultInvalidated}

func (s ResultStatus) IsFinished() bool {
	for _, f := range FinishedResultStatuses {
		if s == f {
			return true
		}
	}
	return false
}

// Valid activation transitions for cycles and runs.
var ValidStatusTransitions = map[Status][]Status{
	StatusDraft:     {StatusActive, StatusDiscarded},
	StatusActive:    {StatusLocked, StatusClosed},
	StatusLocked:    {StatusActive, StatusClosed},
	StatusClosed:    {},
	StatusDiscarded: {},
}

func IsValidStatusTransition(from, to Status) bool {
	for _, s := range ValidStatusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
