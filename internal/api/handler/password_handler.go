package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/ports"
)

type PasswordHandler struct {
	passwords ports.PasswordService
}

func NewPasswordHandler(passwords ports.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// ForgotPassword emails a reset link to a known address.
//
// @Summary      Send password reset link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Router       /v1/auth/forgot-password [post]
func (h *PasswordHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.passwords.SendResetLink(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return ok(c, nil, "We have emailed your password reset link.")
}

// ResetPassword sets a new password using an emailed token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset details"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Router       /v1/auth/reset-password [post]
func (h *PasswordHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.passwords.Reset(c.Request().Context(), req.Email, req.Token, req.Password); err != nil {
		return err
	}
	return ok(c, nil, "Your password has been reset.")
}
