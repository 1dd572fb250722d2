package handlers

import (
	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RunHandler struct {
	runs *services.RunService
	log  *zap.Logger
}

func NewRunHandler(runs *services.RunService, log *zap.Logger) *RunHandler {
	return &RunHandler{runs: runs, log: log}
}

func runInput(req dto.RunRequest) (services.RunInput, error) {
	in := services.RunInput{
		Name:                     req.Name,
		Description:              req.Description,
		SelfAssignAllowed:        req.SelfAssignAllowed,
		SelfAssignLimit:          req.SelfAssignLimit,
		SelfAssignPerEnvironment: req.SelfAssignPerEnvironment,
		UseLatestVersions:        req.UseLatestVersions,
		AutoAssignToTeam:         req.AutoAssignToTeam,
	}
	var err error
	if in.TestCycleID, err = parseID("testCycleId", req.TestCycleID); err != nil {
		return in, err
	}
	if in.ProductID, err = parseID("productId", req.ProductID); err != nil {
		return in, err
	}
	if in.StartDate, err = parseDate("startDate", req.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = parseDate("endDate", req.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

func (h *RunHandler) List(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f services.RunFilter
	if f.TestCycleID, err = queryID(c, "testCycleId"); err != nil {
		return respondError(c, h.log, err)
	}
	if f.ProductID, err = queryID(c, "productId"); err != nil {
		return respondError(c, h.log, err)
	}
	status, err := queryInt(c, "testRunStatusId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if status != nil {
		s := models.Status(*status)
		f.Status = &s
	}

	page, err := h.runs.List(c.UserContext(), f, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("testruns", page.Total, page.Items))
}

func (h *RunHandler) Create(c *fiber.Ctx) error {
	var req dto.RunRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	in, err := runInput(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	run, err := h.runs.Create(c.UserContext(), in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return created(c, run)
}

func (h *RunHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	run, err := h.runs.Get(c.UserContext(), id, opts.IncludeDeleted)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, run)
}

func (h *RunHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.RunRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	in, err := runInput(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	run, err := h.runs.Update(c.UserContext(), id, in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, run)
}

func (h *RunHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.runs.Delete(c.UserContext(), id, middleware.Actor(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, nil)
}

func (h *RunHandler) Activate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	run, err := h.runs.Activate(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, run)
}

func (h *RunHandler) Deactivate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	run, err := h.runs.Deactivate(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, run)
}

func (h *RunHandler) ApproveAllResults(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.runs.ApproveAllResults(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.CountResponse{Count: n})
}

// AddCase includes a test case version in the run.
func (h *RunHandler) AddCase(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.AddCaseRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	versionID, err := uuid.Parse(req.TestCaseVersionID)
	if err != nil {
		return respondError(c, h.log, badRequest("invalid testCaseVersionId"))
	}
	in := services.IncludeInput{TestCaseVersionID: versionID, Priority: req.PriorityID, RunOrder: req.RunOrder}
	if in.TestCaseID, err = parseID("testCaseId", req.TestCaseID); err != nil {
		return respondError(c, h.log, err)
	}
	if in.TestSuiteID, err = parseID("testSuiteId", req.TestSuiteID); err != nil {
		return respondError(c, h.log, err)
	}

	inc, err := h.runs.AddCase(c.UserContext(), id, in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return created(c, inc)
}

// ListIncluded lists included test cases, scoped to the run in the path
// when there is one.
func (h *RunHandler) ListIncluded(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f services.IncludedFilter
	if c.Params("id") != "" {
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, h.log, err)
		}
		f.TestRunID = &id
	} else if f.TestRunID, err = queryID(c, "testRunId"); err != nil {
		return respondError(c, h.log, err)
	}
	if f.TestCaseVersionID, err = queryID(c, "testCaseVersionId"); err != nil {
		return respondError(c, h.log, err)
	}

	page, err := h.runs.ListIncluded(c.UserContext(), f, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("includedtestcases", page.Total, page.Items))
}

func (h *RunHandler) GetIncluded(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	inc, err := h.runs.GetIncluded(c.UserContext(), id, opts.IncludeDeleted)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, inc)
}
