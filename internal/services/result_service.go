package services

import (
	"context"
	"fmt"
	"math"
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

// Comment stored on results invalidated by ExpireStarted.
const ExpiredComment = "expired: not finished in time"

type AssignmentFilter struct {
	IncludedTestCaseID *uuid.UUID
	TestRunID          *uuid.UUID
	TesterID           *uuid.UUID
}

type ResultFilter struct {
	AssignmentID *uuid.UUID
	TestRunID    *uuid.UUID
	TesterID     *uuid.UUID
	Status       *models.ResultStatus
	Approval     *models.ApprovalStatus
}

type ResultService struct {
	store *repositories.Store
	notifier
}

func NewResultService(store *repositories.Store, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *ResultService {
	return &ResultService{store: store, notifier: notifier{publisher: publisher, metrics: m, log: log}}
}

// Assign assigns an included test case to tester and creates the pending
// result the tester will execute.
func (s *ResultService) Assign(ctx context.Context, includedID, testerID uuid.UUID, actor audit.Actor) (*models.TestCaseAssignment, error) {
	if testerID == uuid.Nil {
		return nil, fmt.Errorf("%w: testerId is required", ErrInvalidInput)
	}
	var assignment *models.TestCaseAssignment
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		inc, err := tx.Included.NotDeleted().Get(ctx, includedID)
		if err != nil {
			return notFound(err, "included test case")
		}
		run, err := tx.Runs.NotDeleted().Get(ctx, inc.TestRunID)
		if err != nil {
			return notFound(err, "test run")
		}
		if isTerminal(run.Status) {
			return fmt.Errorf("%w: test run is %s", ErrInvalidTransition, run.Status)
		}
		dup, err := tx.Assignments.NotDeleted().
			Where("included_test_case_id", inc.ID).
			Where("tester_id", testerID).
			Count(ctx)
		if err != nil {
			return err
		}
		if dup > 0 {
			return fmt.Errorf("%w: tester is already assigned", ErrInvalidInput)
		}

		a := &models.TestCaseAssignment{
			IncludedTestCaseID: inc.ID,
			TestRunID:          run.ID,
			TesterID:           testerID,
			ProductID:          run.ProductID,
			TestCaseID:         inc.TestCaseID,
			TestCaseVersionID:  inc.TestCaseVersionID,
			TestSuiteID:        inc.TestSuiteID,
		}
		if err := tx.Assignments.Create(ctx, a, actor); err != nil {
			return err
		}
		if err := tx.Results.Create(ctx, pendingResult(a), actor); err != nil {
			return err
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("test case assigned",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("tester_id", testerID.String()),
	)
	s.publish(ctx, events.EventAssignmentCreated, map[string]any{
		"assignment_id": assignment.ID.String(),
		"run_id":        assignment.TestRunID.String(),
		"tester_id":     testerID.String(),
	})
	return assignment, nil
}

func (s *ResultService) GetAssignment(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.TestCaseAssignment, error) {
	a, err := view(s.store.Assignments, includeDeleted).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "assignment")
	}
	return a, nil
}

func (s *ResultService) ListAssignments(ctx context.Context, f AssignmentFilter, opts ListOptions) (*Page[*models.TestCaseAssignment], error) {
	q := view(s.store.Assignments, opts.IncludeDeleted)
	if f.IncludedTestCaseID != nil {
		q = q.Where("included_test_case_id", *f.IncludedTestCaseID)
	}
	if f.TestRunID != nil {
		q = q.Where("test_run_id", *f.TestRunID)
	}
	if f.TesterID != nil {
		q = q.Where("tester_id", *f.TesterID)
	}
	return paginate(ctx, q, opts)
}

func (s *ResultService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.TestResult, error) {
	r, err := view(s.store.Results, includeDeleted).Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "test result")
	}
	return r, nil
}

func (s *ResultService) List(ctx context.Context, f ResultFilter, opts ListOptions) (*Page[*models.TestResult], error) {
	q := view(s.store.Results, opts.IncludeDeleted)
	if f.AssignmentID != nil {
		q = q.Where("assignment_id", *f.AssignmentID)
	}
	if f.TestRunID != nil {
		q = q.Where("test_run_id", *f.TestRunID)
	}
	if f.TesterID != nil {
		q = q.Where("tester_id", *f.TesterID)
	}
	if f.Status != nil {
		q = q.Where("status", *f.Status)
	}
	if f.Approval != nil {
		q = q.Where("approval", *f.Approval)
	}
	return paginate(ctx, q, opts)
}

func (s *ResultService) Start(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
	return s.apply(ctx, id, "start", actor, func(r *models.TestResult, now time.Time) error {
		if err := moveTo(r, models.ResultStarted); err != nil {
			return err
		}
		r.StartedOn = &now
		return nil
	})
}

func (s *ResultService) FinishSucceed(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
	return s.apply(ctx, id, "finish_succeed", actor, func(r *models.TestResult, now time.Time) error {
		return finish(r, models.ResultPassed, now)
	})
}

func (s *ResultService) FinishInvalidate(ctx context.Context, id uuid.UUID, comment string, actor audit.Actor) (*models.TestResult, error) {
	return s.apply(ctx, id, "finish_invalidate", actor, func(r *models.TestResult, now time.Time) error {
		if err := finish(r, models.ResultInvalidated, now); err != nil {
			return err
		}
		r.Comment = optional(comment)
		return nil
	})
}

func (s *ResultService) FinishFail(ctx context.Context, id uuid.UUID, failedStep int, actualResult string, actor audit.Actor) (*models.TestResult, error) {
	if failedStep < 1 {
		return nil, fmt.Errorf("%w: failedStepNumber must be positive", ErrInvalidInput)
	}
	return s.apply(ctx, id, "finish_fail", actor, func(r *models.TestResult, now time.Time) error {
		if err := finish(r, models.ResultFailed, now); err != nil {
			return err
		}
		r.FailedStepNumber = &failedStep
		r.ActualResult = optional(actualResult)
		return nil
	})
}

func (s *ResultService) Approve(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
	return s.apply(ctx, id, "approve", actor, func(r *models.TestResult, _ time.Time) error {
		if err := review(r, models.ApprovalApproved); err != nil {
			return err
		}
		r.ApprovedBy = copyActor(actor)
		return nil
	})
}

func (s *ResultService) Reject(ctx context.Context, id uuid.UUID, comment string, actor audit.Actor) (*models.TestResult, error) {
	return s.apply(ctx, id, "reject", actor, func(r *models.TestResult, _ time.Time) error {
		if err := review(r, models.ApprovalRejected); err != nil {
			return err
		}
		r.Comment = optional(comment)
		return nil
	})
}

// ExpireStarted invalidates every result that has been in started status
// for longer than olderThan. It runs as one bulk update with no actor and
// returns the number of expired results.
func (s *ResultService) ExpireStarted(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.store.Policy.Now()
	cutoff := now.Add(-olderThan)

	n, err := s.store.Results.NotDeleted().
		Where("status", models.ResultStarted).
		Filter("started_on < ?", cutoff).
		Update(ctx, map[string]any{
			"status":      models.ResultInvalidated,
			"finished_on": now,
			"comment":     ExpiredComment,
		}, nil)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired started results", zap.Int64("count", n), zap.Time("cutoff", cutoff))
		s.transition("expire")
		s.publish(ctx, events.EventResultsExpired, map[string]any{"count": n})
	}
	return n, nil
}

func (s *ResultService) apply(ctx context.Context, id uuid.UUID, action string, actor audit.Actor, fn func(r *models.TestResult, now time.Time) error) (*models.TestResult, error) {
	var result *models.TestResult
	var old models.ResultStatus
	err := s.store.InTx(ctx, func(tx *repositories.Store) error {
		r, err := tx.Results.NotDeleted().Get(ctx, id)
		if err != nil {
			return notFound(err, "test result")
		}
		old = r.Status
		if err := fn(r, s.store.Policy.Now()); err != nil {
			return err
		}
		if err := tx.Results.Save(ctx, r, actor); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transition(action)
	s.publish(ctx, events.EventResultChanged, map[string]any{
		"result_id":  result.ID.String(),
		"run_id":     result.TestRunID.String(),
		"action":     action,
		"old_status": old.String(),
		"new_status": result.Status.String(),
		"approval":   result.Approval.String(),
	})
	return result, nil
}

// approveAll bulk-approves finished results awaiting approval in runs.
func approveAll(ctx context.Context, tx *repositories.Store, runs []uuid.UUID, actor audit.Actor) (int64, error) {
	return tx.Results.NotDeleted().
		WhereIn("test_run_id", runs).
		Where("approval", models.ApprovalPending).
		Filter("status IN (?, ?, ?)", models.ResultPassed, models.ResultFailed, models.ResultInvalidated).
		Update(ctx, map[string]any{
			"approval":    models.ApprovalApproved,
			"approved_by": copyActor(actor),
		}, actor)
}

func pendingResult(a *models.TestCaseAssignment) *models.TestResult {
	return &models.TestResult{
		AssignmentID:      a.ID,
		TestRunID:         a.TestRunID,
		TesterID:          a.TesterID,
		ProductID:         a.ProductID,
		TestCaseID:        a.TestCaseID,
		TestCaseVersionID: a.TestCaseVersionID,
		TestSuiteID:       a.TestSuiteID,
		Status:            models.ResultPending,
		Approval:          models.ApprovalPending,
	}
}

func moveTo(r *models.TestResult, to models.ResultStatus) error {
	if !models.IsValidResultTransition(r.Status, to) {
		return fmt.Errorf("%w: test result %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

func finish(r *models.TestResult, to models.ResultStatus, now time.Time) error {
	if err := moveTo(r, to); err != nil {
		return err
	}
	r.FinishedOn = &now
	if r.StartedOn != nil {
		mins := int(math.Ceil(now.Sub(*r.StartedOn).Minutes()))
		r.ActualTimeInMin = &mins
	}
	return nil
}

func review(r *models.TestResult, to models.ApprovalStatus) error {
	if !r.Status.IsFinished() {
		return fmt.Errorf("%w: test result is %s, not finished", ErrInvalidTransition, r.Status)
	}
	if r.Approval != models.ApprovalPending {
		return fmt.Errorf("%w: test result is already %s", ErrInvalidTransition, r.Approval)
	}
	r.Approval = to
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func copyActor(a audit.Actor) *uuid.UUID {
	if a == nil {
		return nil
	}
	id := *a
	return &id
}
