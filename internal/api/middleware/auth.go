package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/api/metrics"
	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

const identityKey = "identity"

// TokenQueryParam carries the token on websocket upgrades, where browsers
// cannot set headers.
const TokenQueryParam = "token"

// Auth validates the bearer token and stores the decoded identity in the
// context. Every failure is the same 401.
func Auth(validator ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c.Request())
			if !ok {
				return unauthorized(c, "missing")
			}
			id, err := validator.Validate(raw)
			if err != nil {
				return unauthorized(c, "invalid")
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// BearerToken reads the token from the Authorization header, falling back
// to the token query parameter.
func BearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if q := r.URL.Query().Get(TokenQueryParam); q != "" {
		return q, true
	}
	return "", false
}

func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

func unauthorized(c echo.Context, reason string) error {
	metrics.AuthDenialsTotal.WithLabelValues(reason).Inc()
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return domain.ErrUnauthenticated
}
