package handlers

import (
	"context"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecutionHandler serves assignments and results.
type ExecutionHandler struct {
	results *services.ResultService
	log     *zap.Logger
}

func NewExecutionHandler(results *services.ResultService, log *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{results: results, log: log}
}

// Assign assigns the included test case in the path to a tester.
func (h *ExecutionHandler) Assign(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	testerID, err := uuid.Parse(req.TesterID)
	if err != nil {
		return respondError(c, h.log, badRequest("invalid testerId"))
	}
	a, err := h.results.Assign(c.UserContext(), id, testerID, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return created(c, a)
}

func (h *ExecutionHandler) ListAssignments(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f services.AssignmentFilter
	if c.Params("id") != "" {
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, h.log, err)
		}
		f.IncludedTestCaseID = &id
	}
	if f.TestRunID, err = queryID(c, "testRunId"); err != nil {
		return respondError(c, h.log, err)
	}
	if f.TesterID, err = queryID(c, "testerId"); err != nil {
		return respondError(c, h.log, err)
	}

	page, err := h.results.ListAssignments(c.UserContext(), f, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("testcaseassignments", page.Total, page.Items))
}

func (h *ExecutionHandler) GetAssignment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	a, err := h.results.GetAssignment(c.UserContext(), id, opts.IncludeDeleted)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, a)
}

func (h *ExecutionHandler) ListResults(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f services.ResultFilter
	if c.Params("id") != "" {
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, h.log, err)
		}
		f.AssignmentID = &id
	}
	if f.TestRunID, err = queryID(c, "testRunId"); err != nil {
		return respondError(c, h.log, err)
	}
	if f.TesterID, err = queryID(c, "testerId"); err != nil {
		return respondError(c, h.log, err)
	}
	status, err := queryInt(c, "testRunResultStatusId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if status != nil {
		s := models.ResultStatus(*status)
		f.Status = &s
	}
	approval, err := queryInt(c, "approvalStatusId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if approval != nil {
		a := models.ApprovalStatus(*approval)
		f.Approval = &a
	}

	page, err := h.results.List(c.UserContext(), f, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("testresults", page.Total, page.Items))
}

func (h *ExecutionHandler) GetResult(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.results.Get(c.UserContext(), id, opts.IncludeDeleted)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, r)
}

type resultAction func(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error)

func (h *ExecutionHandler) transition(c *fiber.Ctx, action resultAction) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	r, err := action(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, r)
}

func (h *ExecutionHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, h.results.Start)
}

func (h *ExecutionHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.results.Approve)
}

func (h *ExecutionHandler) FinishSucceed(c *fiber.Ctx) error {
	return h.transition(c, h.results.FinishSucceed)
}

func (h *ExecutionHandler) FinishInvalidate(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
		return h.results.FinishInvalidate(ctx, id, req.Comment, actor)
	})
}

func (h *ExecutionHandler) FinishFail(c *fiber.Ctx) error {
	var req dto.FinishFailRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
		return h.results.FinishFail(ctx, id, req.FailedStepNumber, req.ActualResult, actor)
	})
}

func (h *ExecutionHandler) Reject(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	return h.transition(c, func(ctx context.Context, id uuid.UUID, actor audit.Actor) (*models.TestResult, error) {
		return h.results.Reject(ctx, id, req.Comment, actor)
	})
}
