package models

import "github.com/google/uuid"

// TestCaseAssignment assigns an included test case to a tester.
type TestCaseAssignment struct {
	Record
	IncludedTestCaseID uuid.UUID  `json:"includedTestCaseId"`
	TestRunID          uuid.UUID  `json:"testRunId"`
	TesterID           uuid.UUID  `json:"testerId"`
	ProductID          *uuid.UUID `json:"productId,omitempty"`
	TestCaseID         *uuid.UUID `json:"testCaseId,omitempty"`
	TestCaseVersionID  uuid.UUID  `json:"testCaseVersionId"`
	TestSuiteID        *uuid.UUID `json:"testSuiteId,omitempty"`
}

var assignmentColumns = []string{
	"included_test_case_id", "test_run_id", "tester_id", "product_id",
	"test_case_id", "test_case_version_id", "test_suite_id",
}

func (a *TestCaseAssignment) TableName() string { return "test_case_assignments" }
func (a *TestCaseAssignment) Columns() []string { return assignmentColumns }

func (a *TestCaseAssignment) Values() []any {
	return []any{a.IncludedTestCaseID, a.TestRunID, a.TesterID, a.ProductID, a.TestCaseID, a.TestCaseVersionID, a.TestSuiteID}
}

func (a *TestCaseAssignment) Targets() []any {
	return []any{&a.IncludedTestCaseID, &a.TestRunID, &a.TesterID, &a.ProductID, &a.TestCaseID, &a.TestCaseVersionID, &a.TestSuiteID}
}
