package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-access/internal/core/ports"
)

// UserHandler exposes the administrative user commands. All routes require a
// session.
type UserHandler struct {
	admin ports.UserAdmin
}

func NewUserHandler(admin ports.UserAdmin) *UserHandler {
	return &UserHandler{admin: admin}
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// Reactivate restores a soft-deleted user.
//
// @Summary      Reactivate user
// @Tags         users
// @Param        username  path  string  true  "Target username"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /users/{username}/reactivate [patch]
func (h *UserHandler) Reactivate(c echo.Context) error {
	if err := h.admin.ReactivateUser(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Deactivate soft-deletes a user.
//
// @Summary      Deactivate user
// @Tags         users
// @Param        username  path  string  true  "Target username"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /users/{username}/deactivate [patch]
func (h *UserHandler) Deactivate(c echo.Context) error {
	if err := h.admin.DeactivateUser(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GrantAdmin promotes a user to admin.
//
// @Summary      Grant admin
// @Tags         users
// @Param        username  path  string  true  "Target username"
// @Success      204
// @Router       /users/{username}/grant-admin [patch]
func (h *UserHandler) GrantAdmin(c echo.Context) error {
	if err := h.admin.GrantAdmin(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeAdmin demotes an admin to user.
//
// @Summary      Revoke admin
// @Tags         users
// @Param        username  path  string  true  "Target username"
// @Success      204
// @Router       /users/{username}/revoke-admin [patch]
func (h *UserHandler) RevokeAdmin(c echo.Context) error {
	if err := h.admin.RevokeAdmin(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword sets a new password.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Param        username  path  string                 true  "Target username"
// @Param        body      body  changePasswordRequest  true  "New password"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Router       /users/{username}/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.admin.ChangePassword(c.Request().Context(), c.Param("username"), req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
