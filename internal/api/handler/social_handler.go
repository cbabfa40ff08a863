package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/api/metrics"
	"github.com/apistarter/auth-api/internal/core/ports"
)

type SocialHandler struct {
	social  ports.SocialAuthService
	present *Presenter
}

func NewSocialHandler(social ports.SocialAuthService, present *Presenter) *SocialHandler {
	return &SocialHandler{social: social, present: present}
}

type redirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// Redirect returns the provider consent URL.
//
// @Summary      OAuth redirect URL
// @Tags         oauth
// @Produce      json
// @Param        provider  path      string  true  "google, facebook or github"
// @Success      200       {object}  Response{data=redirectResponse}
// @Failure      400       {object}  Response
// @Router       /v1/auth/{provider}/redirect [get]
func (h *SocialHandler) Redirect(c echo.Context) error {
	var req oauthProviderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	url, err := h.social.RedirectURL(c.Request().Context(), req.Provider)
	if err != nil {
		return err
	}
	return ok(c, redirectResponse{RedirectURL: url}, "Redirect URL generated successfully.")
}

// Callback completes the authorization code flow.
//
// @Summary      OAuth callback
// @Tags         oauth
// @Produce      json
// @Param        provider  path      string  true   "google, facebook or github"
// @Param        code      query     string  true   "Authorization code"
// @Param        state     query     string  false  "State returned by the redirect endpoint"
// @Success      200       {object}  Response{data=AuthDTO}
// @Failure      400       {object}  Response
// @Failure      500       {object}  Response
// @Router       /v1/auth/{provider}/callback [get]
func (h *SocialHandler) Callback(c echo.Context) error {
	var req oauthCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	res, err := h.social.LoginWithCode(c.Request().Context(), req.Provider, req.Code, req.State)
	return h.finish(c, res, err)
}

// Token signs in with an access token obtained from the provider.
//
// @Summary      OAuth token exchange
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        provider  path      string             true  "google, facebook or github"
// @Param        body      body      oauthTokenRequest  true  "Provider access token"
// @Success      200       {object}  Response{data=AuthDTO}
// @Failure      400       {object}  Response
// @Failure      500       {object}  Response
// @Router       /v1/auth/{provider}/token [post]
func (h *SocialHandler) Token(c echo.Context) error {
	var req oauthTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	res, err := h.social.LoginWithToken(c.Request().Context(), req.Provider, req.AccessToken)
	return h.finish(c, res, err)
}

func (h *SocialHandler) finish(c echo.Context, res *ports.AuthResult, err error) error {
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("oauth", "failure").Inc()
		if expected(err) {
			return err
		}
		return &FailureError{Message: "OAuth authentication failed.", Err: err}
	}
	metrics.AuthAttemptsTotal.WithLabelValues("oauth", "success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("oauth").Inc()
	return ok(c, h.present.Auth(res), "User authenticated successfully.")
}
