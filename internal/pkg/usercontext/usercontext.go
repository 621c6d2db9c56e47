package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated request context
type UserContext struct {
	UserID     uint   `json:"user_id"`
	TenantID   uint   `json:"tenant_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"is_logged_in"`
	Plan       string `json:"plan"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// SetUserContext stores the user context on the fiber context
func SetUserContext(c *fiber.Ctx, ctx UserContext) {
	c.Locals("USER_CONTEXT", ctx)
}

// IsAdmin checks if the current user has the admin role
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).Role == "admin"
}

// GetTenantID returns the current tenant's ID, or 0 if not authenticated
func GetTenantID(c *fiber.Ctx) uint {
	return GetUserContext(c).TenantID
}
