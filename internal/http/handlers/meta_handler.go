package handlers

import (
	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/models"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

func statusItems() []dto.StaticDataItem {
	var out []dto.StaticDataItem
	for _, s := range []models.Status{models.StatusDraft, models.StatusActive, models.StatusLocked, models.StatusClosed, models.StatusDiscarded} {
		out = append(out, dto.StaticDataItem{ID: int(s), Label: s.String()})
	}
	return out
}

func resultStatusItems() []dto.StaticDataItem {
	var out []dto.StaticDataItem
	for _, s := range []models.ResultStatus{
		models.ResultPending, models.ResultPassed, models.ResultFailed,
		models.ResultBlocked, models.ResultStarted, models.ResultInvalidated,
	} {
		out = append(out, dto.StaticDataItem{ID: int(s), Label: s.String()})
	}
	return out
}

func approvalItems() []dto.StaticDataItem {
	var out []dto.StaticDataItem
	for _, s := range []models.ApprovalStatus{models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected} {
		out = append(out, dto.StaticDataItem{ID: int(s), Label: s.String()})
	}
	return out
}

// GetStaticData returns the code tables referenced by status fields.
func (h *MetaHandler) GetStaticData(c *fiber.Ctx) error {
	statuses := statusItems()
	return c.JSON(dto.SuccessResponse{OK: true, Data: map[string][]dto.StaticDataItem{
		"TESTCYCLESTATUS":     statuses,
		"TESTRUNSTATUS":       statuses,
		"TESTRUNRESULTSTATUS": resultStatusItems(),
		"APPROVALSTATUS":      approvalItems(),
	}})
}

// GetMe describes the authenticated user.
func (h *MetaHandler) GetMe(c *fiber.Ctx) error {
	role := middleware.GetRole(c)
	perms := rbac.RolePermissions[role]
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.MeResponse{
		UserID:      middleware.GetUserID(c).String(),
		Role:        role,
		Permissions: perms,
	}})
}
