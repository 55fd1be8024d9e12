package middleware

import (
	"errors"

	"leadflow/internal/core/domain"
	"leadflow/internal/core/services"
	"leadflow/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TenantMiddleware resolves the X-Tenant slug header to a tenant and
// stores its ID in the request context. Every tenant-scoped route runs
// behind this.
func TenantMiddleware(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Get("X-Tenant")
		if slug == "" {
			return response.BadRequest(c, "X-Tenant header is required")
		}

		tenant, err := authService.ResolveTenant(c.Context(), slug)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTenantNotFound):
				return response.NotFound(c, "Unknown tenant")
			case errors.Is(err, domain.ErrTenantInactive):
				return response.Forbidden(c, "Tenant is inactive")
			default:
				return response.InternalServerError(c, "Failed to resolve tenant")
			}
		}

		c.Locals("tenantID", tenant.ID)
		c.Locals("tenantSlug", tenant.Slug)
		return c.Next()
	}
}

// TenantID reads the resolved tenant ID from the request context
func TenantID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("tenantID").(uint); ok {
		return id
	}
	return 0
}

// UserID reads the authenticated user ID from the request context
func UserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}
