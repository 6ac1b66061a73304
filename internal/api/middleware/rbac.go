package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/api/metrics"
	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// RequirePermission rejects identities whose role lacks p. It must run
// after Auth.
func RequirePermission(p domain.Permission) echo.MiddlewareFunc {
	return gate(string(p), func(id domain.Identity) bool {
		return id.Can(p)
	})
}

// RequireAnyPermission accepts identities holding at least one of perms.
func RequireAnyPermission(perms ...domain.Permission) echo.MiddlewareFunc {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return gate(strings.Join(names, " or "), func(id domain.Identity) bool {
		return domain.HasAnyPermission(id.Role, perms...)
	})
}

// RequireRoles accepts identities whose role is one of roles.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	allowed := make(map[domain.Role]struct{}, len(roles))
	for i, r := range roles {
		names[i] = string(r)
		allowed[r] = struct{}{}
	}
	return gate("role "+strings.Join(names, " or "), func(id domain.Identity) bool {
		_, ok := allowed[id.Role]
		return ok
	})
}

func RequireAdmin() echo.MiddlewareFunc {
	return RequireRoles(domain.RoleAdmin)
}

func RequireEmployeeOrAdmin() echo.MiddlewareFunc {
	return RequireRoles(domain.RoleAdmin, domain.RoleEmployee)
}

func gate(required string, allow func(domain.Identity) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return unauthorized(c, "missing")
			}
			if !allow(id) {
				metrics.AuthDenialsTotal.WithLabelValues("forbidden").Inc()
				return &domain.PermissionError{Required: required}
			}
			return next(c)
		}
	}
}
