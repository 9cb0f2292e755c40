package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/authz"
	"github.com/Skotchmaster/magister_portal/internal/logging"
)

// Allow must run after RequireAuth.
func Allow(action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoToken)
			}
			if !authz.Can(u, action) {
				logging.FromContext(c.Request().Context()).Warn("access_denied",
					"status", 403, "action", string(action), "user_id", u.ID)
				return echo.NewHTTPError(http.StatusForbidden, "Admins only")
			}
			return next(c)
		}
	}
}
