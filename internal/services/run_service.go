package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/events"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunInput carries the writable fields of a test run. Nil fields are left
// unchanged on update; the owning cycle can only be set on create.
type RunInput struct {
	TestCycleID              *uuid.UUID
	ProductID                *uuid.UUID
	Name                     *string
	Description              *string
	SelfAssignAllowed        *bool
	SelfAssignLimit          *int
	SelfAssignPerEnvironment *bool
	UseLatestVersions        *bool
	AutoAssignToTeam         *bool
	StartDate                *time.Time
	EndDate                  *time.Time
}

type RunFilter struct {
	TestCycleID *uuid.UUID
	ProductID   *uuid.UUID
	Status      *models.Status
}

// IncludeInput describes a test case version added to a run.
type IncludeInput struct {
	TestCaseVersionID uuid.UUID
	TestCaseID        *uuid.UUID
	TestSuiteID       *uuid.UUID
	Priority          int
	RunOrder          int
}

type IncludedFilter struct {
	TestRunID         *uuid.UUID
	TestCaseVersionID *uuid.UUID
}

type RunService struct {
	store *repositories.Store
	notifier
}

func NewRunService(store *repositories.Store, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *RunService {
	return &RunService{store: store, notifier: notifier{publisher: publisher, metrics: m, log: log}}
}

func (s *RunService) Create(ctx context.Context, in RunInput, actor audit.Actor) (*models.TestRun, error) {
	if in.TestCycleID == nil {
		return nil, fmt.Errorf("%w: testCycleId is required", ErrInvalidInput)
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.SelfAssignLimit != nil && *in.SelfAssignLimit < 0 {
		return nil, fmt.Errorf("%w: selfAssignLimit cannot be negative", ErrInvalidInput)
	}

	var run *models.TestRun
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		cycle, err := tx.Cycles.NotDeleted().Get(ctx, *in.TestCycleID)
		if err != nil {
			return notFound(err, "test cycle")
		}
		if isTerminal(cycle.Status) {
			return fmt.Errorf("%w: test cycle is %s", ErrInvalidTransition, cycle.Status)
		}
		r := &models.TestRun{
			TestCycleID: cycle.ID,
			ProductID:   cycle.ProductID,
			Status:      models.StatusDraft,
		}
		applyRunInput(r, in)
		if err := checkDates(r.StartDate, r.EndDate); err != nil {
			return err
		}
		if err := tx.Runs.Create(ctx, r, actor); err != nil {
			return err
		}
		run = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("test run created", zap.String("run_id", run.ID.String()), zap.String("cycle_id", run.TestCycleID.String()))
	s.publish(ctx, events.EventRunChanged, map[string]any{"run_id": run.ID.String(), "action": "created"})
	return run, nil
}

func (s *RunService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.TestRun, error) {
	r, err := view(s.store.Runs, includeDeleted).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "test run")
	}
	return r, nil
}

func (s *RunService) List(ctx context.Context, f RunFilter, opts ListOptions) (*Page[*models.TestRun], error) {
	q := view(s.store.Runs, opts.IncludeDeleted)
	if f.TestCycleID != nil {
		q = q.Where("test_cycle_id", *f.TestCycleID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id", *f.ProductID)
	}
	if f.Status != nil {
		q = q.Where("status", *f.Status)
	}
	return paginate(ctx, q, opts)
}

func (s *RunService) Update(ctx context.Context, id uuid.UUID, in RunInput, actor audit.Actor) (*models.TestRun, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if in.SelfAssignLimit != nil && *in.SelfAssignLimit < 0 {
		return nil, fmt.Errorf("%w: selfAssignLimit cannot be negative", ErrInvalidInput)
	}
	r, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if in.TestCycleID != nil && *in.TestCycleID != r.TestCycleID {
		return nil, fmt.Errorf("%w: a run cannot move to another cycle", ErrInvalidInput)
	}
	applyRunInput(r, in)
	if err := checkDates(r.StartDate, r.EndDate); err != nil {
		return nil, err
	}
	if err := s.store.Runs.Save(ctx, r, actor); err != nil {
		return nil, notFound(err, "test run")
	}
	s.publish(ctx, events.EventRunChanged, map[string]any{"run_id": r.ID.String(), "action": "updated"})
	return r, nil
}

func (s *RunService) Delete(ctx context.Context, id uuid.UUID, actor audit.Actor) error {
	r, err := s.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.store.Runs.Delete(ctx, r, actor); err != nil {
		return notFound(err, "test run")
	}
	s.log.Info("test run deleted", zap.String("run_id", r.ID.String()))
	s.publish(ctx, events.EventRunChanged, map[string]any{"run_id": r.ID.String(), "action": "deleted"})
	return nil
}

func (s *RunService) Activate(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestRun, error) {
	return s.setStatus(ctx, id, models.StatusActive, actor)
}

func (s *RunService) Deactivate(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestRun, error) {
	return s.setStatus(ctx, id, models.StatusLocked, actor)
}

func (s *RunService) setStatus(ctx context.Context, id uuid.UUID, to models.Status, actor audit.Actor) (*models.TestRun, error) {
	r, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !models.IsValidStatusTransition(r.Status, to) {
		return nil, fmt.Errorf("%w: test run %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	old := r.Status
	r.Status = to
	if err := s.store.Runs.Save(ctx, r, actor); err != nil {
		return nil, notFound(err, "test run")
	}
	s.publish(ctx, events.EventRunChanged, map[string]any{
		"run_id":     r.ID.String(),
		"old_status": old.String(),
		"new_status": to.String(),
	})
	return r, nil
}

// AddCase includes a test case version in the run.
func (s *RunService) AddCase(ctx context.Context, runID uuid.UUID, in IncludeInput, actor audit.Actor) (*models.IncludedTestCase, error) {
	if in.TestCaseVersionID == uuid.Nil {
		return nil, fmt.Errorf("%w: testCaseVersionId is required", ErrInvalidInput)
	}
	var inc *models.IncludedTestCase
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		run, err := tx.Runs.NotDeleted().Get(ctx, runID)
		if err != nil {
			return notFound(err, "test run")
		}
		if isTerminal(run.Status) {
			return fmt.Errorf("%w: test run is %s", ErrInvalidTransition, run.Status)
		}
		i := &models.IncludedTestCase{
			TestRunID:         run.ID,
			TestCaseVersionID: in.TestCaseVersionID,
			TestCaseID:        in.TestCaseID,
			TestSuiteID:       in.TestSuiteID,
			Priority:          in.Priority,
			RunOrder:          in.RunOrder,
		}
		if err := tx.Included.Create(ctx, i, actor); err != nil {
			return err
		}
		inc = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventCaseIncluded, map[string]any{
		"run_id":      runID.String(),
		"included_id": inc.ID.String(),
	})
	return inc, nil
}

func (s *RunService) GetIncluded(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.IncludedTestCase, error) {
	i, err := view(s.store.Included, includeDeleted).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "included test case")
	}
	return i, nil
}

func (s *RunService) ListIncluded(ctx context.Context, f IncludedFilter, opts ListOptions) (*Page[*models.IncludedTestCase], error) {
	q := view(s.store.Included, opts.IncludeDeleted)
	if f.TestRunID != nil {
		q = q.Where("test_run_id", *f.TestRunID)
	}
	if f.TestCaseVersionID != nil {
		q = q.Where("test_case_version_id", *f.TestCaseVersionID)
	}
	return paginate(ctx, q.OrderBy("run_order", false).OrderBy("created_on", false), opts)
}

// ApproveAllResults approves every finished, pending-approval result of the
// run and returns how many were approved.
func (s *RunService) ApproveAllResults(ctx context.Context, id uuid.UUID, actor audit.Actor) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Runs.NotDeleted().Get(ctx, id); err != nil {
			return notFound(err, "test run")
		}
		var err error
		n, err = approveAll(ctx, tx, []uuid.UUID{id}, actor)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("approved all results of test run", zap.String("run_id", id.String()), zap.Int64("count", n))
	s.transition("approve_all")
	s.publish(ctx, events.EventResultsApproved, map[string]any{"run_id": id.String(), "count": n})
	return n, nil
}

func applyRunInput(r *models.TestRun, in RunInput) {
	if in.ProductID != nil {
		r.ProductID = in.ProductID
	}
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.SelfAssignAllowed != nil {
		r.SelfAssignAllowed = *in.SelfAssignAllowed
	}
	if in.SelfAssignLimit != nil {
		r.SelfAssignLimit = *in.SelfAssignLimit
	}
	if in.SelfAssignPerEnvironment != nil {
		r.SelfAssignPerEnvironment = *in.SelfAssignPerEnvironment
	}
	if in.UseLatestVersions != nil {
		r.UseLatestVersions = *in.UseLatestVersions
	}
	if in.AutoAssignToTeam != nil {
		r.AutoAssignToTeam = *in.AutoAssignToTeam
	}
	if in.StartDate != nil {
		r.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		r.EndDate = in.EndDate
	}
}

func isTerminal(s models.Status) bool {
	return s == models.StatusClosed || s == models.StatusDiscarded
}
