package middleware

import (
	"strings"

	"github.com/case-conductor/backend/internal/audit"
	"github.com/case-conductor/backend/internal/auth"
	"github.com/case-conductor/backend/internal/http/dto"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

func AuthMiddleware(secret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing authorization header", RequestID: GetRequestID(c)})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid authorization format", RequestID: GetRequestID(c)})
		}

		claims, err := auth.ParseJWT(secret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid or expired token", RequestID: GetRequestID(c)})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxRole, claims.Role)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxRole).(string)
	return role
}

// Actor returns the authenticated user as an audit actor, or nil.
func Actor(c *fiber.Ctx) audit.Actor {
	id := GetUserID(c)
	if id == uuid.Nil {
		return nil
	}
	return audit.By(id)
}

// Can reports whether the authenticated role grants permission.
func Can(c *fiber.Ctx, permission string) bool {
	return rbac.HasPermission(GetRole(c), permission)
}

// RequirePermission rejects requests whose role lacks permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Can(c, permission) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: permission + " permission required", RequestID: GetRequestID(c)})
		}
		return c.Next()
	}
}
