package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-access/internal/api/middleware"
	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
	"github.com/99minutos/identity-access/internal/pkg/metrics"
)

type AuthHandler struct {
	authService ports.AuthService
	cookie      middleware.CookieOptions
}

func NewAuthHandler(authService ports.AuthService, cookie middleware.CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username.String(),
		Role:     u.Role.String(),
		IsActive: u.IsActive,
	}
}

// Login authenticates a user and starts a session.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.LogIn(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	middleware.WriteSessionCookie(c, token, h.cookie)
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      toUserResponse(user),
	})
}

// Logout clears the session cookie. Tokens are stateless, so a copied token
// stays valid until it expires.
//
// @Summary      Log out
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	middleware.ClearSessionCookie(c, h.cookie)
	return c.NoContent(http.StatusNoContent)
}
