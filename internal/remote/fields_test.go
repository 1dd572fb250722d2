package remote

import (
	"testing"
	"time"

	"github.com/case-conductor/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_WireKey(t *testing.T) {
	tests := []struct {
		f    Field
		want string
	}{
		{Field{Name: "name", Kind: Scalar}, "name"},
		{Field{Name: "testRun", Kind: Locator}, "testRunId"},
		{Field{Name: "status", Key: "testRunStatusId", Kind: Static}, "testRunStatusId"},
		{Field{Name: "team", Key: "team/members", Kind: Link}, "team/members"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.f.WireKey())
	}
}

func TestDecodeFields(t *testing.T) {
	id, run, tester := uuid.New(), uuid.New(), uuid.New()
	raw := []byte(`{
		"id": "` + id.String() + `",
		"createdOn": "2011-06-01T09:00:00.5Z",
		"testRunId": "` + run.String() + `",
		"testerId": "` + tester.String() + `",
		"testRunResultStatusId": 3,
		"approvalStatusId": 1,
		"failedStepNumber": 2,
		"actualResult": "crashed",
		"startedOn": "2011-06-01",
		"finishedOn": null,
		"unknown": true
	}`)

	var r TestResult
	require.NoError(t, decode(&r, raw))
	assert.Equal(t, id, r.ID)
	assert.Equal(t, run, r.TestRunID)
	assert.Equal(t, tester, r.TesterID)
	assert.Equal(t, models.ResultFailed, r.Status)
	assert.Equal(t, models.ApprovalPending, r.Approval)
	require.NotNil(t, r.FailedStepNumber)
	assert.Equal(t, 2, *r.FailedStepNumber)
	require.NotNil(t, r.StartedOn)
	assert.Equal(t, time.Date(2011, 6, 1, 0, 0, 0, 0, time.UTC), *r.StartedOn)
	assert.Nil(t, r.FinishedOn)
	require.NotNil(t, r.CreatedOn)
	assert.Equal(t, 500*time.Millisecond, time.Duration(r.CreatedOn.Nanosecond()))
	assert.Nil(t, r.ProductID)
}

func TestDecodeFields_TypeMismatch(t *testing.T) {
	var c TestCycle
	err := decode(&c, []byte(`{"name": 42}`))
	assert.ErrorContains(t, err, "name")

	err = decode(&c, []byte(`{"startDate": "first of June"}`))
	assert.ErrorContains(t, err, "startDate")
}

func TestEncodeFields(t *testing.T) {
	product := uuid.New()
	start := time.Date(2011, 6, 1, 15, 30, 0, 0, time.UTC)
	c := TestCycle{
		ProductID: &product,
		Name:      "Release 1.0",
		Status:    models.StatusActive,
		StartDate: &start,
	}
	c.ID = uuid.New()

	got := encodeFields(c.fields())
	assert.Equal(t, &product, got["productId"])
	assert.Equal(t, "Release 1.0", got["name"])
	assert.Equal(t, models.StatusActive, got["testCycleStatusId"])
	assert.Equal(t, "2011-06-01", got["startDate"])
	assert.Contains(t, got, "endDate")
	assert.Nil(t, got["endDate"])
	assert.NotContains(t, got, "id")
	assert.NotContains(t, got, "testruns")
}

func TestEncodeFields_SkipsReadOnly(t *testing.T) {
	r := TestResult{Status: models.ResultPassed, Approval: models.ApprovalApproved}
	got := encodeFields(r.fields())
	assert.NotContains(t, got, "testRunResultStatusId")
	assert.NotContains(t, got, "approvalStatusId")
	assert.NotContains(t, got, "approvedById")
	assert.NotContains(t, got, "startedOn")
	assert.Contains(t, got, "comment")
	assert.Contains(t, got, "testerId")
}

func TestLinksAndLocators(t *testing.T) {
	cycle := uuid.New()
	r := &TestRun{TestCycleID: cycle}
	r.ID = uuid.New()

	links := Links(r)
	assert.Equal(t, "testruns/"+r.ID.String()+"/includedtestcases", links["includedtestcases"])
	assert.Equal(t, "testruns/"+r.ID.String()+"/team/members", links["team"])
	assert.Equal(t, links["includedtestcases"], r.IncludedTestCases().Path())

	assert.Equal(t, map[string]uuid.UUID{"testCycle": cycle}, Locators(r))
}
