package handlers

import (
	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CycleHandler struct {
	cycles *services.CycleService
	runs   *services.RunService
	log    *zap.Logger
}

func NewCycleHandler(cycles *services.CycleService, runs *services.RunService, log *zap.Logger) *CycleHandler {
	return &CycleHandler{cycles: cycles, runs: runs, log: log}
}

func cycleInput(req dto.CycleRequest) (services.CycleInput, error) {
	in := services.CycleInput{Name: req.Name, Description: req.Description}
	var err error
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

func (h *CycleHandler) List(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var f services.CycleFilter
	if f.ProductID, err = queryID(c, "productId"); err != nil {
		return respondError(c, h.log, err)
	}
	status, err := queryInt(c, "testCycleStatusId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if status != nil {
		s := models.Status(*status)
		f.Status = &s
	}

	page, err := h.cycles.List(c.UserContext(), f, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("testcycles", page.Total, page.Items))
}

func (h *CycleHandler) Create(c *fiber.Ctx) error {
	var req dto.CycleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	in, err := cycleInput(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	cycle, err := h.cycles.Create(c.UserContext(), in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return created(c, cycle)
}

func (h *CycleHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	cycle, err := h.cycles.Get(c.UserContext(), id, opts.IncludeDeleted)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, cycle)
}

func (h *CycleHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.CycleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	in, err := cycleInput(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	cycle, err := h.cycles.Update(c.UserContext(), id, in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, cycle)
}

func (h *CycleHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.cycles.Delete(c.UserContext(), id, middleware.Actor(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, nil)
}

func (h *CycleHandler) Activate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	cycle, err := h.cycles.Activate(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, cycle)
}

func (h *CycleHandler) Deactivate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	cycle, err := h.cycles.Deactivate(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, cycle)
}

func (h *CycleHandler) ApproveAllResults(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.cycles.ApproveAllResults(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.CountResponse{Count: n})
}

func (h *CycleHandler) Clone(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.CloneRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	clone, err := h.cycles.Clone(c.UserContext(), id, req.CloneAssignments, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return created(c, clone)
}

// ListRuns lists the runs of one cycle.
func (h *CycleHandler) ListRuns(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.runs.List(c.UserContext(), services.RunFilter{TestCycleID: &id}, opts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, dto.List("testruns", page.Total, page.Items))
}
