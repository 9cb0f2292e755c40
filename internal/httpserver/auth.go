package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

// credentials deliberately has no role field.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badBody(l, "signup_error", err)
	}

	res, err := h.Svc.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTP(l, "signup_error", err, messages{
			service.ErrConflict: "User already exists with this email",
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Signup successful! You can now log in.",
		"token":   res.Token,
		"user":    res.User.Public(),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTP(l, "login_error", err, nil)
	}

	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful!",
		"token":   res.Token,
		"user":    res.User.Public(),
	})
}
