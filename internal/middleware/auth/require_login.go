package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/tokens"
)

const (
	msgNoToken      = "No token provided. Authentication required."
	msgInvalidToken = "Invalid or expired token"
	msgConfigError  = "Server configuration error"
)

// RequireAuth rejects requests without a valid bearer token. A missing
// signing secret is a server fault and is reported as 500.
func RequireAuth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "auth.require_auth")

			raw := bearerToken(c)
			if raw == "" {
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoToken)
			}

			u, err := v.Verify(ctx, raw)
			if err != nil {
				if errors.Is(err, tokens.ErrMissingSecret) {
					l.Error("auth_failed", "status", 500, "reason", "signing secret not configured")
					return echo.NewHTTPError(http.StatusInternalServerError, msgConfigError)
				}
				l.Warn("auth_failed", "status", 401, "reason", "token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
			}

			setUserContext(c, u)
			return next(c)
		}
	}
}
