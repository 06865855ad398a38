package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, required := range roles {
				if HasRole(ctx, required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// Authorizer answers the capability questions the scheduling service asks
// before touching any state.
type Authorizer interface {
	IsAdmin(ctx context.Context) bool
	CanRead(ctx context.Context) bool
}

// RoleAuthorizer derives capabilities from the roles placed on the request
// context by JWTMiddleware or DevAuthMiddleware.
type RoleAuthorizer struct{}

func (RoleAuthorizer) IsAdmin(ctx context.Context) bool { return HasRole(ctx, RoleAdmin) }

func (RoleAuthorizer) CanRead(ctx context.Context) bool { return HasRole(ctx, RoleStaff) }
