package models

import (
	"time"

	"github.com/google/uuid"
)

type TestResult struct {
	Record
	AssignmentID      uuid.UUID      `json:"assignmentId"`
	TestRunID         uuid.UUID      `json:"testRunId"`
	TesterID          uuid.UUID      `json:"testerId"`
	ProductID         *uuid.UUID     `json:"productId,omitempty"`
	TestCaseID        *uuid.UUID     `json:"testCaseId,omitempty"`
	TestCaseVersionID uuid.UUID      `json:"testCaseVersionId"`
	TestSuiteID       *uuid.UUID     `json:"testSuiteId,omitempty"`
	Status            ResultStatus   `json:"testRunResultStatusId"`
	Approval          ApprovalStatus `json:"approvalStatusId"`
	ApprovedBy        *uuid.UUID     `json:"approvedById,omitempty"`
	Comment           *string        `json:"comment,omitempty"`
	FailedStepNumber  *int           `json:"failedStepNumber,omitempty"`
	ActualResult      *string        `json:"actualResult,omitempty"`
	ActualTimeInMin   *int           `json:"actualTimeInMin,omitempty"`
	StartedOn         *time.Time     `json:"startedOn,omitempty"`
	FinishedOn        *time.Time     `json:"finishedOn,omitempty"`
}

var testResultColumns = []string{
	"assignment_id", "test_run_id", "tester_id", "product_id", "test_case_id",
	"test_case_version_id", "test_suite_id", "status", "approval", "approved_by",
	"comment", "failed_step_number", "actual_result", "actual_time_in_min",
	"started_on", "finished_on",
}

func (r *TestResult) TableName() string { return "test_results" }
func (r *TestResult) Columns() []string { return testResultColumns }

func (r *TestResult) Values() []any {
	return []any{
		r.AssignmentID, r.TestRunID, r.TesterID, r.ProductID, r.TestCaseID,
		r.TestCaseVersionID, r.TestSuiteID, r.Status, r.Approval, r.ApprovedBy,
		r.Comment, r.FailedStepNumber, r.ActualResult, r.ActualTimeInMin,
		r.StartedOn, r.FinishedOn,
	}
}

func (r *TestResult) Targets() []any {
	return []any{
		&r.AssignmentID, &r.TestRunID, &r.TesterID, &r.ProductID, &r.TestCaseID,
		&r.TestCaseVersionID, &r.TestSuiteID, &r.Status, &r.Approval, &r.ApprovedBy,
		&r.Comment, &r.FailedStepNumber, &r.ActualResult, &r.ActualTimeInMin,
		&r.StartedOn, &r.FinishedOn,
	}
}
