package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

const userKey = "user"

// Verifier resolves a raw bearer token to the user it was issued for.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*models.User, error)
}

// CurrentUser returns the user attached by RequireAuth, or nil.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func setUserContext(c echo.Context, u *models.User) {
	c.Set(userKey, u)
	c.Set("user_id", u.ID)
	c.Set("role", u.Role)
}

func bearerToken(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
