package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
	"github.com/99minutos/identity-access/internal/core/service"
	"github.com/99minutos/identity-access/internal/pkg/metrics"
)

const (
	SessionCookieName    = "session"
	RefreshedTokenHeader = "X-Session-Token"
)

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Secure bool
}

// Session verifies the session token from the cookie or the bearer header and
// puts its subject into the request context. When the token is inside its
// refresh window the replacement is written back as a cookie and header.
func Session(tokens ports.SessionTokens, cookie CookieOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := extractToken(c.Request())
			if err != nil {
				metrics.SessionVerificationsTotal.WithLabelValues("rejected").Inc()
				return err
			}

			session, err := tokens.Verify(raw)
			if err != nil {
				metrics.SessionVerificationsTotal.WithLabelValues("rejected").Inc()
				return err
			}

			if session.Replacement != nil {
				WriteSessionCookie(c, *session.Replacement, cookie)
				c.Response().Header().Set(RefreshedTokenHeader, session.Replacement.Value)
				metrics.SessionVerificationsTotal.WithLabelValues("refreshed").Inc()
			} else {
				metrics.SessionVerificationsTotal.WithLabelValues("valid").Inc()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(service.WithSessionSubject(req.Context(), session.Subject)))
			return next(c)
		}
	}
}

// WriteSessionCookie sets the session cookie to expire with the token.
func WriteSessionCookie(c echo.Context, token domain.SessionToken, opts CookieOptions) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c echo.Context, opts CookieOptions) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func extractToken(r *http.Request) (string, error) {
	if ck, err := r.Cookie(SessionCookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: missing session", domain.ErrAuthentication)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrAuthentication)
	}
	return parts[1], nil
}
