package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/case-conductor/backend/internal/models"
	"github.com/google/uuid"
)

const (
	pathTestCycles  = "testcycles"
	pathTestRuns    = "testruns"
	pathIncluded    = "testruns/includedtestcases"
	pathAssignments = "testruns/assignments"
	pathResults     = "testruns/results"
)

type TestCycle struct {
	Object
	ProductID   *uuid.UUID
	Name        string
	Description string
	Status      models.Status
	StartDate   *time.Time
	EndDate     *time.Time
}

func (c *TestCycle) basePath() string { return pathTestCycles }

func (c *TestCycle) fields() []Field {
	return []Field{
		{Name: "product", Kind: Locator, Target: &c.ProductID},
		{Name: "name", Kind: Scalar, Target: &c.Name},
		{Name: "description", Kind: Scalar, Target: &c.Description},
		{Name: "status", Key: "testCycleStatusId", Kind: Static, Target: &c.Status},
		{Name: "startDate", Kind: Date, Target: &c.StartDate},
		{Name: "endDate", Kind: Date, Target: &c.EndDate},
		{Name: "environmentgroups", Kind: Link},
		{Name: "testruns", Kind: Link},
		{Name: "team", Key: "team/members", Kind: Link},
	}
}

func (c *TestCycle) ApproveAllResults(ctx context.Context) error {
	return action(ctx, c, http.MethodPut, "approveallresults", nil, nil)
}

// Clone asks the server to copy the cycle, optionally with its
// assignments, and returns the copy.
func (c *TestCycle) Clone(ctx context.Context, assignments bool) (*TestCycle, error) {
	clone := &TestCycle{}
	err := action(ctx, c, http.MethodPost, "clone", map[string]any{"cloneAssignments": assignments}, clone)
	if err != nil {
		return nil, err
	}
	return clone, nil
}

func (c *TestCycle) Activate(ctx context.Context) error {
	return action(ctx, c, http.MethodPut, "activate", nil, c)
}

func (c *TestCycle) Deactivate(ctx context.Context) error {
	return action(ctx, c, http.MethodPut, "deactivate", nil, c)
}

func (c *TestCycle) TestRuns() *List[TestRun, *TestRun] {
	return newList[TestRun](c.client, Location(c)+"/testruns", "testruns")
}

type TestRun struct {
	Object
	ProductID                *uuid.UUID
	TestCycleID              uuid.UUID
	Name                     string
	Description              string
	Status                   models.Status
	SelfAssignAllowed        bool
	SelfAssignLimit          int
	SelfAssignPerEnvironment bool
	UseLatestVersions        bool
	AutoAssignToTeam         bool
	StartDate                *time.Time
	EndDate                  *time.Time
}

func (r *TestRun) basePath() string { return pathTestRuns }

func (r *TestRun) fields() []Field {
	return []Field{
		{Name: "product", Kind: Locator, Target: &r.ProductID},
		{Name: "testCycle", Kind: Locator, Target: &r.TestCycleID},
		{Name: "name", Kind: Scalar, Target: &r.Name},
		{Name: "description", Kind: Scalar, Target: &r.Description},
		{Name: "status", Key: "testRunStatusId", Kind: Static, Target: &r.Status},
		{Name: "selfAssignAllowed", Kind: Scalar, Target: &r.SelfAssignAllowed},
		{Name: "selfAssignLimit", Kind: Scalar, Target: &r.SelfAssignLimit},
		{Name: "selfAssignPerEnvironment", Kind: Scalar, Target: &r.SelfAssignPerEnvironment},
		{Name: "useLatestVersions", Kind: Scalar, Target: &r.UseLatestVersions},
		{Name: "autoAssignToTeam", Kind: Scalar, Target: &r.AutoAssignToTeam},
		{Name: "startDate", Kind: Date, Target: &r.StartDate},
		{Name: "endDate", Kind: Date, Target: &r.EndDate},
		{Name: "environmentgroups", Kind: Link},
		{Name: "includedtestcases", Kind: Link},
		{Name: "team", Key: "team/members", Kind: Link},
		{Name: "testsuites", Kind: Link},
	}
}

// AddCase includes a test case version in the run and returns the new
// included test case.
func (r *TestRun) AddCase(ctx context.Context, versionID uuid.UUID, priority, runOrder int) (*IncludedTestCase, error) {
	inc := &IncludedTestCase{}
	payload := map[string]any{
		"testCaseVersionId": versionID,
		"priorityId":        priority,
		"runOrder":          runOrder,
	}
	if err := action(ctx, r, http.MethodPost, "includedtestcases", payload, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// AddSuite includes every case of a test suite in the run.
func (r *TestRun) AddSuite(ctx context.Context, suiteID uuid.UUID) error {
	return action(ctx, r, http.MethodPost, "includedtestcases/testsuite/"+suiteID.String()+"/", nil, nil)
}

func (r *TestRun) ApproveAllResults(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "approveallresults", nil, nil)
}

func (r *TestRun) Activate(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "activate", nil, r)
}

func (r *TestRun) Deactivate(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "deactivate", nil, r)
}

func (r *TestRun) IncludedTestCases() *List[IncludedTestCase, *IncludedTestCase] {
	return newList[IncludedTestCase](r.client, Location(r)+"/includedtestcases", "includedtestcases")
}

// TestCycle resolves the cycle the run belongs to.
func (r *TestRun) TestCycle(ctx context.Context) (*TestCycle, error) {
	return Get[TestCycle](ctx, r.client, r.TestCycleID)
}

type IncludedTestCase struct {
	Object
	TestRunID         uuid.UUID
	TestCaseVersionID uuid.UUID
	TestCaseID        *uuid.UUID
	TestSuiteID       *uuid.UUID
	Priority          int
	RunOrder          int
}

func (i *IncludedTestCase) basePath() string { return pathIncluded }

func (i *IncludedTestCase) fields() []Field {
	return []Field{
		{Name: "testRun", Kind: Locator, Target: &i.TestRunID},
		{Name: "testCaseVersion", Kind: Locator, Target: &i.TestCaseVersionID},
		{Name: "testCase", Kind: Locator, Target: &i.TestCaseID},
		{Name: "testSuite", Kind: Locator, Target: &i.TestSuiteID},
		{Name: "priority", Key: "priorityId", Kind: Scalar, Target: &i.Priority},
		{Name: "runOrder", Kind: Scalar, Target: &i.RunOrder},
		{Name: "assignments", Kind: Link},
	}
}

// Assign assigns the case to tester. The returned assignment uses the
// same client and credentials.
func (i *IncludedTestCase) Assign(ctx context.Context, testerID uuid.UUID) (*TestCaseAssignment, error) {
	a := &TestCaseAssignment{}
	if err := action(ctx, i, http.MethodPost, "assignments", map[string]any{"testerId": testerID}, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (i *IncludedTestCase) Assignments() *List[TestCaseAssignment, *TestCaseAssignment] {
	return newList[TestCaseAssignment](i.client, Location(i)+"/assignments", "testcaseassignments")
}

func (i *IncludedTestCase) TestRun(ctx context.Context) (*TestRun, error) {
	return Get[TestRun](ctx, i.client, i.TestRunID)
}

type TestCaseAssignment struct {
	Object
	IncludedTestCaseID uuid.UUID
	TestRunID          uuid.UUID
	TesterID           uuid.UUID
	ProductID          *uuid.UUID
	TestCaseID         *uuid.UUID
	TestCaseVersionID  uuid.UUID
	TestSuiteID        *uuid.UUID
}

func (a *TestCaseAssignment) basePath() string { return pathAssignments }

func (a *TestCaseAssignment) fields() []Field {
	return []Field{
		{Name: "includedTestCase", Kind: Locator, Target: &a.IncludedTestCaseID},
		{Name: "product", Kind: Locator, Target: &a.ProductID},
		{Name: "testCase", Kind: Locator, Target: &a.TestCaseID},
		{Name: "testCaseVersion", Kind: Locator, Target: &a.TestCaseVersionID},
		{Name: "testSuite", Kind: Locator, Target: &a.TestSuiteID},
		{Name: "tester", Kind: Locator, Target: &a.TesterID},
		{Name: "testRun", Kind: Locator, Target: &a.TestRunID},
		{Name: "environmentgroups", Kind: Link},
		{Name: "results", Kind: Link},
	}
}

func (a *TestCaseAssignment) Results() *List[TestResult, *TestResult] {
	return newList[TestResult](a.client, Location(a)+"/results", "testresults")
}

func (a *TestCaseAssignment) TestRun(ctx context.Context) (*TestRun, error) {
	return Get[TestRun](ctx, a.client, a.TestRunID)
}

type TestResult struct {
	Object
	AssignmentID      uuid.UUID
	ActualResult      *string
	ActualTimeInMin   *int
	Approval          models.ApprovalStatus
	ApprovedBy        *uuid.UUID
	Comment           *string
	FailedStepNumber  *int
	ProductID         *uuid.UUID
	TestCaseID        *uuid.UUID
	TestCaseVersionID uuid.UUID
	TestSuiteID       *uuid.UUID
	TestRunID         uuid.UUID
	Status            models.ResultStatus
	TesterID          uuid.UUID
	StartedOn         *time.Time
	FinishedOn        *time.Time
}

func (r *TestResult) basePath() string { return pathResults }

func (r *TestResult) fields() []Field {
	return []Field{
		{Name: "assignment", Kind: Locator, Target: &r.AssignmentID, ReadOnly: true},
		{Name: "actualResult", Kind: Scalar, Target: &r.ActualResult},
		{Name: "actualTimeInMin", Kind: Scalar, Target: &r.ActualTimeInMin},
		{Name: "approval", Key: "approvalStatusId", Kind: Static, Target: &r.Approval, ReadOnly: true},
		{Name: "approvedBy", Kind: Locator, Target: &r.ApprovedBy, ReadOnly: true},
		{Name: "comment", Kind: Scalar, Target: &r.Comment},
		{Name: "failedStepNumber", Kind: Scalar, Target: &r.FailedStepNumber},
		{Name: "product", Kind: Locator, Target: &r.ProductID},
		{Name: "testCase", Kind: Locator, Target: &r.TestCaseID},
		{Name: "testCaseVersion", Kind: Locator, Target: &r.TestCaseVersionID},
		{Name: "testSuite", Kind: Locator, Target: &r.TestSuiteID},
		{Name: "testRun", Kind: Locator, Target: &r.TestRunID},
		{Name: "status", Key: "testRunResultStatusId", Kind: Static, Target: &r.Status, ReadOnly: true},
		{Name: "tester", Kind: Locator, Target: &r.TesterID},
		{Name: "startedOn", Kind: Date, Target: &r.StartedOn, ReadOnly: true},
		{Name: "finishedOn", Kind: Date, Target: &r.FinishedOn, ReadOnly: true},
		{Name: "environments", Kind: Link},
	}
}

func (r *TestResult) Start(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "start", nil, r)
}

func (r *TestResult) Approve(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "approve", nil, r)
}

func (r *TestResult) FinishSucceed(ctx context.Context) error {
	return action(ctx, r, http.MethodPut, "finishsucceed", nil, r)
}

func (r *TestResult) FinishInvalidate(ctx context.Context, comment string) error {
	return action(ctx, r, http.MethodPut, "finishinvalidate", map[string]any{"comment": comment}, r)
}

func (r *TestResult) FinishFail(ctx context.Context, failedStepNumber int, actualResult string) error {
	payload := map[string]any{
		"failedStepNumber": failedStepNumber,
		"actualResult":     actualResult,
	}
	return action(ctx, r, http.MethodPut, "finishfail", payload, r)
}

func (r *TestResult) Reject(ctx context.Context, comment string) error {
	return action(ctx, r, http.MethodPut, "reject", map[string]any{"comment": comment}, r)
}

func (r *TestResult) TestRun(ctx context.Context) (*TestRun, error) {
	return Get[TestRun](ctx, r.client, r.TestRunID)
}

func (c *Client) TestCycles() *List[TestCycle, *TestCycle] {
	return newList[TestCycle](c, pathTestCycles, "testcycles")
}

func (c *Client) TestRuns() *List[TestRun, *TestRun] {
	return newList[TestRun](c, pathTestRuns, "testruns")
}

func (c *Client) IncludedTestCases() *List[IncludedTestCase, *IncludedTestCase] {
	return newList[IncludedTestCase](c, pathIncluded, "includedtestcases")
}

func (c *Client) TestCaseAssignments() *List[TestCaseAssignment, *TestCaseAssignment] {
	return newList[TestCaseAssignment](c, pathAssignments, "testcaseassignments")
}

func (c *Client) TestResults() *List[TestResult, *TestResult] {
	return newList[TestResult](c, pathResults, "testresults")
}

func (c *Client) TestCycle(ctx context.Context, id uuid.UUID) (*TestCycle, error) {
	return Get[TestCycle](ctx, c, id)
}

func (c *Client) TestRun(ctx context.Context, id uuid.UUID) (*TestRun, error) {
	return Get[TestRun](ctx, c, id)
}

func (c *Client) IncludedTestCase(ctx context.Context, id uuid.UUID) (*IncludedTestCase, error) {
	return Get[IncludedTestCase](ctx, c, id)
}

func (c *Client) TestCaseAssignment(ctx context.Context, id uuid.UUID) (*TestCaseAssignment, error) {
	return Get[TestCaseAssignment](ctx, c, id)
}

func (c *Client) TestResult(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	return Get[TestResult](ctx, c, id)
}
