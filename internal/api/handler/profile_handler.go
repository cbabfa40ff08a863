package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/api/metrics"
	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const pictureFormField = "profile_picture"

// ProfileHandler serves the authenticated user's own account.
type ProfileHandler struct {
	profile ports.ProfileService
	tokens  ports.TokenService
	present *Presenter
}

func NewProfileHandler(profile ports.ProfileService, tokens ports.TokenService, present *Presenter) *ProfileHandler {
	return &ProfileHandler{profile: profile, tokens: tokens, present: present}
}

// Show returns the caller's profile with roles and permissions.
//
// @Summary      Current user profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=UserProfileDTO}
// @Failure      401  {object}  Response
// @Router       /v1/user [get]
func (h *ProfileHandler) Show(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	access, err := h.profile.Show(c.Request().Context(), p.User)
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "")
}

// Update changes profile fields present in the body.
//
// @Summary      Update profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  Response{data=UserProfileDTO}
// @Failure      422   {object}  Response
// @Router       /v1/user [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	access, err := h.profile.Update(c.Request().Context(), p.User, ports.UpdateProfileInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "User profile updated successfully.")
}

// UpdatePassword changes the password after checking the current one.
//
// @Summary      Change password
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updatePasswordRequest  true  "Current and new password"
// @Success      200   {object}  Response
// @Failure      422   {object}  Response
// @Router       /v1/user/password [put]
func (h *ProfileHandler) UpdatePassword(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req updatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	err = h.profile.UpdatePassword(c.Request().Context(), p.User, ports.UpdatePasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
	})
	if err != nil {
		return err
	}
	return ok(c, nil, "Password updated successfully.")
}

// UploadPicture replaces the profile picture.
//
// @Summary      Upload profile picture
// @Tags         user
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        profile_picture  formData  file  true  "jpeg, png or gif up to 2MB"
// @Success      200              {object}  Response{data=UserProfileDTO}
// @Failure      422              {object}  Response
// @Router       /v1/user/profile-picture [post]
func (h *ProfileHandler) UploadPicture(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile(pictureFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return domain.NewValidationError(pictureFormField, "The profile picture field is required.")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	access, err := h.profile.UploadPicture(c.Request().Context(), p.User, ports.UploadInput{Body: f, Size: fh.Size})
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "Profile picture uploaded successfully.")
}

// DeletePicture removes the profile picture.
//
// @Summary      Delete profile picture
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=UserProfileDTO}
// @Failure      404  {object}  Response
// @Router       /v1/user/profile-picture [delete]
func (h *ProfileHandler) DeletePicture(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	access, err := h.profile.DeletePicture(c.Request().Context(), p.User)
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "Profile picture deleted successfully.")
}

// Tokens lists the caller's active tokens without their secrets.
//
// @Summary      List own tokens
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=[]TokenDTO}
// @Router       /v1/user/tokens [get]
func (h *ProfileHandler) Tokens(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	tokens, err := h.tokens.ListTokens(c.Request().Context(), p.User.ID)
	if err != nil {
		return err
	}
	return ok(c, h.present.Tokens(tokens), "")
}

type revokedResponse struct {
	Revoked int64 `json:"revoked"`
}

// RevokeTokens revokes the caller's tokens whose name contains device.
//
// @Summary      Revoke tokens by device
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        device  query     string  true  "Substring of the token name"
// @Success      200     {object}  Response{data=revokedResponse}
// @Failure      422     {object}  Response
// @Router       /v1/user/tokens [delete]
func (h *ProfileHandler) RevokeTokens(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req revokeTokensRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := h.tokens.RevokeTokensByDevice(c.Request().Context(), p.User.ID, req.Device)
	if err != nil {
		return err
	}
	metrics.TokensRevokedTotal.WithLabelValues("device").Add(float64(n))
	return ok(c, revokedResponse{Revoked: n}, "Tokens revoked successfully.")
}
