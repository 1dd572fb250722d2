package services

import (
	"context"
	"math"
	"testing"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/events"
	"github.com/case-conductor/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleService_CreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.cycles.Create(ctx, CycleInput{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.cycles.Create(ctx, CycleInput{Name: ptr("   ")}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	start := e.clock.now()
	end := start.AddDate(0, 0, -1)
	_, err = e.cycles.Create(ctx, CycleInput{Name: ptr("x"), StartDate: &start, EndDate: &end}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	c, err := e.cycles.Create(ctx, CycleInput{Name: ptr("  Sprint  ")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sprint", c.Name)
	assert.Equal(t, models.StatusDraft, c.Status)
}

func TestCycleService_UpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner, editor := uuid.New(), uuid.New()

	c, err := e.cycles.Create(ctx, CycleInput{Name: ptr("Sprint")}, audit.By(owner))
	require.NoError(t, err)

	c, err = e.cycles.Update(ctx, c.ID, CycleInput{Description: ptr("regression")}, audit.By(editor))
	require.NoError(t, err)
	assert.Equal(t, "Sprint", c.Name)
	assert.Equal(t, "regression", c.Description)
	assert.Equal(t, owner, *c.CreatedBy)
	assert.Equal(t, editor, *c.ModifiedBy)

	require.NoError(t, e.cycles.Delete(ctx, c.ID, audit.By(editor)))

	_, err = e.cycles.Get(ctx, c.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := e.cycles.Get(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
	assert.Equal(t, editor, *deleted.DeletedBy)

	err = e.cycles.Delete(ctx, c.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.cycles.Update(ctx, c.ID, CycleInput{Name: ptr("again")}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCycleService_ListViewsAndPaging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := uuid.New()

	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		c, err := e.cycles.Create(ctx, CycleInput{ProductID: &product, Name: ptr(name)}, nil)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := e.cycles.Create(ctx, CycleInput{Name: ptr("other product")}, nil)
	require.NoError(t, err)
	require.NoError(t, e.cycles.Delete(ctx, ids[0], nil))

	page, err := e.cycles.List(ctx, CycleFilter{ProductID: &product}, ListOptions{PageSize: 2, PageIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "d", page.Items[0].Name)
	assert.Equal(t, "e", page.Items[1].Name)

	beyond, err := e.cycles.List(ctx, CycleFilter{ProductID: &product}, ListOptions{PageSize: 500, PageIndex: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, 4, beyond.Total)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)

	all, err := e.cycles.List(ctx, CycleFilter{ProductID: &product}, ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
	assert.Len(t, all.Items, 5)

	empty, err := e.cycles.List(ctx, CycleFilter{Status: ptr(models.StatusClosed)}, ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.Items)
}

func TestCycleService_StatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c, err := e.cycles.Create(ctx, CycleInput{Name: ptr("Sprint")}, nil)
	require.NoError(t, err)

	_, err = e.cycles.Deactivate(ctx, c.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	c, err = e.cycles.Activate(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, c.Status)

	c, err = e.cycles.Deactivate(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, c.Status)

	got, err := e.cycles.Get(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, got.Status)

	assert.Contains(t, e.publisher.types(), events.EventCycleChanged)
}

func TestCycleService_ApproveAllResults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	manager := uuid.New()
	cycle, _, inc := e.seed(t, nil)

	var results []*models.TestResult
	for i := 0; i < 3; i++ {
		a, err := e.results.Assign(ctx, inc.ID, uuid.New(), nil)
		require.NoError(t, err)
		results = append(results, e.resultFor(t, a))
	}
	// two finished, one still pending
	for _, r := range results[:2] {
		_, err := e.results.Start(ctx, r.ID, nil)
		require.NoError(t, err)
		_, err = e.results.FinishSucceed(ctx, r.ID, nil)
		require.NoError(t, err)
	}

	n, err := e.cycles.ApproveAllResults(ctx, cycle.ID, audit.By(manager))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for i, r := range results {
		got, err := e.results.Get(ctx, r.ID, false)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, models.ApprovalApproved, got.Approval)
			require.NotNil(t, got.ApprovedBy)
			assert.Equal(t, manager, *got.ApprovedBy)
			assert.Equal(t, manager, *got.ModifiedBy)
		} else {
			assert.Equal(t, models.ApprovalPending, got.Approval)
			assert.Nil(t, got.ApprovedBy)
		}
	}

	n, err = e.cycles.ApproveAllResults(ctx, cycle.ID, audit.By(manager))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.cycles.ApproveAllResults(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCycleService_Clone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cloner := uuid.New()
	cycle, run, inc := e.seed(t, nil)

	tester := uuid.New()
	_, err := e.results.Assign(ctx, inc.ID, tester, nil)
	require.NoError(t, err)

	tests := []struct {
		name            string
		withAssignments bool
		wantAssignments int
	}{
		{"without assignments", false, 0},
		{"with assignments", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clone, err := e.cycles.Clone(ctx, cycle.ID, tt.withAssignments, audit.By(cloner))
			require.NoError(t, err)
			assert.NotEqual(t, cycle.ID, clone.ID)
			assert.Equal(t, cycle.Name, clone.Name)
			assert.Equal(t, cycle.ProductID, clone.ProductID)
			assert.Equal(t, models.StatusDraft, clone.Status)
			assert.Equal(t, cloner, *clone.CreatedBy)

			runs, err := e.runs.List(ctx, RunFilter{TestCycleID: &clone.ID}, ListOptions{})
			require.NoError(t, err)
			require.Len(t, runs.Items, 1)
			newRun := runs.Items[0]
			assert.NotEqual(t, run.ID, newRun.ID)
			assert.Equal(t, run.Name, newRun.Name)
			assert.Equal(t, models.StatusDraft, newRun.Status)

			included, err := e.runs.ListIncluded(ctx, IncludedFilter{TestRunID: &newRun.ID}, ListOptions{})
			require.NoError(t, err)
			require.Len(t, included.Items, 1)
			assert.Equal(t, inc.TestCaseVersionID, included.Items[0].TestCaseVersionID)

			assignments, err := e.results.ListAssignments(ctx, AssignmentFilter{TestRunID: &newRun.ID}, ListOptions{})
			require.NoError(t, err)
			require.Len(t, assignments.Items, tt.wantAssignments)
			if tt.wantAssignments > 0 {
				a := assignments.Items[0]
				assert.Equal(t, tester, a.TesterID)
				assert.Equal(t, included.Items[0].ID, a.IncludedTestCaseID)
				r := e.resultFor(t, a)
				assert.Equal(t, models.ResultPending, r.Status)
			}
		})
	}

	// the source is untouched
	runs, err := e.runs.List(ctx, RunFilter{TestCycleID: &cycle.ID}, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, runs.Total)
	assert.Contains(t, e.publisher.types(), events.EventCycleCloned)

	_, err = e.cycles.Clone(ctx, uuid.New(), false, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
