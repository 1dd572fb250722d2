package models

import "github.com/google/uuid"

// IncludedTestCase is a test case version included in a test run.
type IncludedTestCase struct {
	Record
	TestRunID         uuid.UUID  `json:"testRunId"`
	TestCaseVersionID uuid.UUID  `json:"testCaseVersionId"`
	TestCaseID        *uuid.UUID `json:"testCaseId,omitempty"`
	TestSuiteID       *uuid.UUID `json:"testSuiteId,omitempty"`
	Priority          int        `json:"priorityId"`
	RunOrder          int        `json:"runOrder"`
}

var includedTestCaseColumns = []string{
	"test_run_id", "test_case_version_id", "test_case_id", "test_suite_id", "priority", "run_order",
}

func (i *IncludedTestCase) TableName() string { return "included_test_cases" }
func (i *IncludedTestCase) Columns() []string { return includedTestCaseColumns }

func (i *IncludedTestCase) Values() []any {
	return []any{i.TestRunID, i.TestCaseVersionID, i.TestCaseID, i.TestSuiteID, i.Priority, i.RunOrder}
}

func (i *IncludedTestCase) Targets() []any {
	return []any{&i.TestRunID, &i.TestCaseVersionID, &i.TestCaseID, &i.TestSuiteID, &i.Priority, &i.RunOrder}
}
