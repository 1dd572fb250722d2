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

// CycleInput carries the writable fields of a test cycle. Nil fields are
// left unchanged on update.
type CycleInput struct {
	ProductID   *uuid.UUID
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type CycleFilter struct {
	ProductID *uuid.UUID
	Status    *models.Status
}

type CycleService struct {
	store *repositories.Store
	notifier
}

func NewCycleService(store *repositories.Store, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *CycleService {
	return &CycleService{store: store, notifier: notifier{publisher: publisher, metrics: m, log: log}}
}

func (s *CycleService) Create(ctx context.Context, in CycleInput, actor audit.Actor) (*models.TestCycle, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	c := &models.TestCycle{Status: models.StatusDraft}
	applyCycleInput(c, in)
	if err := checkDates(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.Cycles.Create(ctx, c, actor); err != nil {
		return nil, err
	}
	s.log.Info("test cycle created", zap.String("cycle_id", c.ID.String()))
	s.publish(ctx, events.EventCycleChanged, map[string]any{"cycle_id": c.ID.String(), "action": "created"})
	return c, nil
}

func (s *CycleService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.TestCycle, error) {
	c, err := view(s.store.Cycles, includeDeleted).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "test cycle")
	}
	return c, nil
}

func (s *CycleService) List(ctx context.Context, f CycleFilter, opts ListOptions) (*Page[*models.TestCycle], error) {
	q := view(s.store.Cycles, opts.IncludeDeleted)
	if f.ProductID != nil {
		q = q.Where("product_id", *f.ProductID)
	}
	if f.Status != nil {
		q = q.Where("status", *f.Status)
	}
	return paginate(ctx, q, opts)
}

func (s *CycleService) Update(ctx context.Context, id uuid.UUID, in CycleInput, actor audit.Actor) (*models.TestCycle, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	c, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	applyCycleInput(c, in)
	if err := checkDates(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}
	if err := s.store.Cycles.Save(ctx, c, actor); err != nil {
		return nil, notFound(err, "test cycle")
	}
	s.publish(ctx, events.EventCycleChanged, map[string]any{"cycle_id": c.ID.String(), "action": "updated"})
	return c, nil
}

// Delete soft-deletes the cycle only. Its runs stay visible.
func (s *CycleService) Delete(ctx context.Context, id uuid.UUID, actor audit.Actor) error {
	c, err := s.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.store.Cycles.Delete(ctx, c, actor); err != nil {
		return notFound(err, "test cycle")
	}
	s.log.Info("test cycle deleted", zap.String("cycle_id", c.ID.String()))
	s.publish(ctx, events.EventCycleChanged, map[string]any{"cycle_id": c.ID.String(), "action": "deleted"})
	return nil
}

func (s *CycleService) Activate(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestCycle, error) {
	return s.setStatus(ctx, id, models.StatusActive, actor)
}

func (s *CycleService) Deactivate(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestCycle, error) {
	return s.setStatus(ctx, id, models.StatusLocked, actor)
}

func (s *CycleService) setStatus(ctx context.Context, id uuid.UUID, to models.Status, actor audit.Actor) (*models.TestCycle, error) {
	c, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !models.IsValidStatusTransition(c.Status, to) {
		return nil, fmt.Errorf("%w: test cycle %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	old := c.Status
	c.Status = to
	if err := s.store.Cycles.Save(ctx, c, actor); err != nil {
		return nil, notFound(err, "test cycle")
	}
	s.publish(ctx, events.EventCycleChanged, map[string]any{
		"cycle_id":   c.ID.String(),
		"old_status": old.String(),
		"new_status": to.String(),
	})
	return c, nil
}

// ApproveAllResults approves every finished, pending-approval result of
// every run in the cycle. It returns the number of approved results.
func (s *CycleService) ApproveAllResults(ctx context.Context, id uuid.UUID, actor audit.Actor) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Cycles.NotDeleted().Get(ctx, id); err != nil {
			return notFound(err, "test cycle")
		}
		runs, err := tx.Runs.NotDeleted().Where("test_cycle_id", id).List(ctx)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(runs))
		for i, r := range runs {
			ids[i] = r.ID
		}
		n, err = approveAll(ctx, tx, ids, actor)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("approved all results of test cycle", zap.String("cycle_id", id.String()), zap.Int64("count", n))
	s.transition("approve_all")
	s.publish(ctx, events.EventResultsApproved, map[string]any{"cycle_id": id.String(), "count": n})
	return n, nil
}

// Clone copies the cycle with its runs and included test cases into a new
// draft cycle. With cloneAssignments, assignments are copied too and each
// gets a fresh pending result.
func (s *CycleService) Clone(ctx context.Context, id uuid.UUID, cloneAssignments bool, actor audit.Actor) (*models.TestCycle, error) {
	var clone *models.TestCycle
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		src, err := tx.Cycles.NotDeleted().Get(ctx, id)
		if err != nil {
			return notFound(err, "test cycle")
		}
		c := *src
		c.Record = models.Record{}
		c.Status = models.StatusDraft
		if err := tx.Cycles.Create(ctx, &c, actor); err != nil {
			return err
		}
		clone = &c

		runs, err := tx.Runs.NotDeleted().Where("test_cycle_id", src.ID).List(ctx)
		if err != nil {
			return err
		}
		for _, run := range runs {
			if err := cloneRun(ctx, tx, run, clone.ID, cloneAssignments, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("test cycle cloned",
		zap.String("source_id", id.String()),
		zap.String("cycle_id", clone.ID.String()),
		zap.Bool("assignments", cloneAssignments),
	)
	s.publish(ctx, events.EventCycleCloned, map[string]any{"source_id": id.String(), "cycle_id": clone.ID.String()})
	return clone, nil
}

func cloneRun(ctx context.Context, tx *repositories.Store, src *models.TestRun, cycleID uuid.UUID, withAssignments bool, actor audit.Actor) error {
	run := *src
	run.Record = models.Record{}
	run.TestCycleID = cycleID
	run.Status = models.StatusDraft
	if err := tx.Runs.Create(ctx, &run, actor); err != nil {
		return err
	}

	included, err := tx.Included.NotDeleted().Where("test_run_id", src.ID).List(ctx)
	if err != nil {
		return err
	}
	mapped := make(map[uuid.UUID]uuid.UUID, len(included))
	for _, inc := range included {
		cp := *inc
		cp.Record = models.Record{}
		cp.TestRunID = run.ID
		if err := tx.Included.Create(ctx, &cp, actor); err != nil {
			return err
		}
		mapped[inc.ID] = cp.ID
	}
	if !withAssignments {
		return nil
	}

	assignments, err := tx.Assignments.NotDeleted().Where("test_run_id", src.ID).List(ctx)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		incID, ok := mapped[a.IncludedTestCaseID]
		if !ok {
			// included case was deleted after assignment
			continue
		}
		cp := *a
		cp.Record = models.Record{}
		cp.IncludedTestCaseID = incID
		cp.TestRunID = run.ID
		if err := tx.Assignments.Create(ctx, &cp, actor); err != nil {
			return err
		}
		if err := tx.Results.Create(ctx, pendingResult(&cp), actor); err != nil {
			return err
		}
	}
	return nil
}

func applyCycleInput(c *models.TestCycle, in CycleInput) {
	if in.ProductID != nil {
		c.ProductID = in.ProductID
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = in.EndDate
	}
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return nil
}
