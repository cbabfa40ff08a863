package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/api/metrics"
	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

type AuthHandler struct {
	auth    ports.AuthService
	present *Presenter
}

func NewAuthHandler(auth ports.AuthService, present *Presenter) *AuthHandler {
	return &AuthHandler{auth: auth, present: present}
}

// Register creates an account with the default role and signs it in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      200   {object}  Response{data=AuthDTO}
// @Failure      422   {object}  Response
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Device:   userAgent(c),
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "failure").Inc()
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()
	return ok(c, h.present.Auth(res), "User registered successfully.")
}

// Login exchanges credentials for a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  Response{data=AuthDTO}
// @Failure      401   {object}  Response
// @Failure      429   {object}  Response
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   userAgent(c),
		IP:       c.RealIP(),
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		var rerr *domain.RateLimitError
		if errors.As(err, &rerr) {
			metrics.RateLimitRejectionsTotal.WithLabelValues("login").Inc()
		}
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	return ok(c, h.present.Auth(res), "User logged in successfully.")
}

// Logout revokes the token used for this request.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response
// @Failure      401  {object}  Response
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.Request().Context(), p); err != nil {
		return &FailureError{Message: "Logout failed.", Err: err}
	}
	metrics.TokensRevokedTotal.WithLabelValues("current").Inc()
	return ok(c, nil, "User logged out successfully.")
}

// LogoutAll revokes every token of the caller.
//
// @Summary      Logout from every device
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response
// @Router       /v1/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.LogoutEverywhere(c.Request().Context(), p); err != nil {
		return &FailureError{Message: "Logout failed.", Err: err}
	}
	metrics.TokensRevokedTotal.WithLabelValues("all").Inc()
	return ok(c, nil, "Logged out from all devices successfully.")
}

// Refresh replaces the current token with a new one.
//
// @Summary      Refresh token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=AuthDTO}
// @Router       /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	res, err := h.auth.Refresh(c.Request().Context(), p)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "failure").Inc()
		return &FailureError{Message: "Token refresh failed.", Err: err}
	}
	metrics.AuthAttemptsTotal.WithLabelValues("refresh", "success").Inc()
	metrics.TokensRevokedTotal.WithLabelValues("current").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return ok(c, h.present.Auth(res), "Token refreshed successfully.")
}
