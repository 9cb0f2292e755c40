package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/service"
	"github.com/Skotchmaster/magister_portal/internal/tokens"
)

type errorBody struct {
	Message string               `json:"message"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

// ErrorHandler renders every error as {message, errors}. Only the message
// of an echo.HTTPError reaches the client; internal causes are logged.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := errorBody{Message: "Server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		body.Message = fmt.Sprint(he.Message)
		var verr *service.ValidationError
		if errors.As(he.Internal, &verr) {
			body.Errors = verr.Fields
		}
	} else {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}

// messages overrides the default client text for a sentinel.
type messages map[error]string

// toHTTP maps a service error onto an echo.HTTPError and logs it with the
// handler's logger.
func toHTTP(l *slog.Logger, event string, err error, msgs messages) error {
	status, msg := http.StatusInternalServerError, "Server error"

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		l.Warn(event, "status", http.StatusBadRequest, "reason", verr.Message())
		return echo.NewHTTPError(http.StatusBadRequest, verr.Message()).SetInternal(verr)
	case errors.Is(err, tokens.ErrMissingSecret):
		status, msg = http.StatusInternalServerError, "Server configuration error"
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrConflict):
		status, msg = http.StatusBadRequest, "Already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid login details"
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, "Admins only"
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrInvalidToken):
		status, msg = http.StatusBadRequest, "Invalid or expired reset token"
	case errors.Is(err, service.ErrSearchDisabled):
		status, msg = http.StatusServiceUnavailable, "Search is not available"
	}
	for target, m := range msgs {
		if errors.Is(err, target) {
			msg = m
			break
		}
	}

	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

func badBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}
