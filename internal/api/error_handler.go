package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/pkg/metrics"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorKind struct {
	target error
	status int
	code   string
}

// Each domain error kind maps to its own status and stable code.
var errorKinds = []errorKind{
	{domain.ErrAuthentication, http.StatusUnauthorized, "authentication_failed"},
	{domain.ErrAuthorization, http.StatusForbidden, "authorization_failed"},
	{domain.ErrDomainField, http.StatusBadRequest, "invalid_field"},
	{domain.ErrUserNotFoundByUsername, http.StatusNotFound, "user_not_found"},
	{domain.ErrActivationChangeNotPermitted, http.StatusConflict, "activation_change_not_permitted"},
	{domain.ErrRoleChangeNotPermitted, http.StatusConflict, "role_change_not_permitted"},
	{domain.ErrInvalidHashFormat, http.StatusInternalServerError, "invalid_hash_format"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and error code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<code>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		metrics.RequestErrorsTotal.WithLabelValues(resp.Code).Inc()
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: "http_error"}
	}

	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		msg := err.Error()
		if k.status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
			msg = k.target.Error()
		}
		return k.status, errorResponse{Error: msg, Code: k.code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
}
