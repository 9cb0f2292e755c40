package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/service"
)

type RecoveryHTTP struct {
	Svc *service.RecoveryService
}

func (h *RecoveryHTTP) RequestReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recovery.request")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(l, "recover_error", err)
	}

	if err := h.Svc.RequestReset(ctx, req.Email); err != nil {
		return toHTTP(l, "recover_error", err, messages{
			service.ErrUpstream: "Error sending recovery email. Try again.",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": service.ResetRequestedMessage})
}

func (h *RecoveryHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recovery.reset")

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(l, "reset_error", err)
	}

	if err := h.Svc.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return toHTTP(l, "reset_error", err, nil)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful! You can now log in."})
}
