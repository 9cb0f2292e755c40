package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	authmw "github.com/Skotchmaster/magister_portal/internal/middleware/auth"
	"github.com/Skotchmaster/magister_portal/internal/service"
)

type ContactHTTP struct {
	Svc *service.ContactService
}

func (h *ContactHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.submit")

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(l, "contact_error", err)
	}

	if _, err := h.Svc.Submit(ctx, service.ContactInput{Name: req.Name, Email: req.Email, Message: req.Message}); err != nil {
		return toHTTP(l, "contact_error", err, messages{
			service.ErrUpstream: "Error sending message. Please try again.",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Message sent successfully!"})
}

func (h *ContactHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.list")

	items, err := h.Svc.List(ctx, authmw.CurrentUser(c))
	if err != nil {
		return toHTTP(l, "contact_list_error", err, nil)
	}
	return c.JSON(http.StatusOK, items)
}
