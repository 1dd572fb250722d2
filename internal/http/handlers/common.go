package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/case-conductor/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 500

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("forbidden")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// respondError maps service errors to status codes.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrInvalidInput):
		status, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, errForbidden):
		status, msg = fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, msg = fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrInvalidTransition):
		status, msg = fiber.StatusConflict, err.Error()
	default:
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

func parseID(field string, s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, badRequest("invalid %s", field)
	}
	return &id, nil
}

func queryID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	v := c.Query(key)
	return parseID(key, &v)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("invalid %s", field)
}

func queryInt(c *fiber.Ctx, key string) (*int, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, badRequest("invalid %s", key)
	}
	return &n, nil
}

// listOptions reads pagesize, pageindex and deleted from the query string.
// Listing deleted records needs the view_deleted permission.
func listOptions(c *fiber.Ctx) (services.ListOptions, error) {
	var opts services.ListOptions
	if v := c.Query("pagesize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, badRequest("invalid pagesize")
		}
		opts.PageSize = min(n, maxPageSize)
	}
	if v := c.Query("pageindex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, badRequest("invalid pageindex")
		}
		opts.PageIndex = n
	}
	if c.QueryBool("deleted", false) {
		if !middleware.Can(c, rbac.PermViewDeleted) {
			return opts, fmt.Errorf("%w: %s permission required", errForbidden, rbac.PermViewDeleted)
		}
		opts.IncludeDeleted = true
	}
	return opts, nil
}

// parseBody decodes an optional JSON body.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: data})
}
