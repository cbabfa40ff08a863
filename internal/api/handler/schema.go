package handler

// --- Auth ---

type registerRequest struct {
	Name                 string `json:"name"                  validate:"required,max=255"`
	Email                string `json:"email"                 validate:"required,email,max=255"`
	Password             string `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token                string `json:"token"                 validate:"required"`
	Email                string `json:"email"                 validate:"required,email"`
	Password             string `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type oauthProviderRequest struct {
	Provider string `param:"provider"`
}

type oauthCallbackRequest struct {
	Provider string `param:"provider"`
	Code     string `query:"code"     json:"code"`
	State    string `query:"state"    json:"state"`
}

type oauthTokenRequest struct {
	Provider    string `param:"provider"`
	AccessToken string `json:"access_token"`
}

// --- Profile ---

type updateProfileRequest struct {
	Name    *string `json:"name"    validate:"omitnil,notblank,max=255"`
	Email   *string `json:"email"   validate:"omitnil,notblank,email,max=255"`
	Phone   *string `json:"phone"   validate:"omitnil,max=20"`
	Address *string `json:"address" validate:"omitnil,max=255"`
}

type updatePasswordRequest struct {
	CurrentPassword      string `json:"current_password"      validate:"required"`
	Password             string `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type revokeTokensRequest struct {
	Device string `query:"device" validate:"required"`
}

// --- Admin ---

type listUsersRequest struct {
	Search  string `query:"search"`
	Role    string `query:"role"`
	Page    int    `query:"page"     validate:"gte=0"`
	PerPage int    `query:"per_page" validate:"gte=0,lte=100"`
}

type createUserRequest struct {
	Name                 string   `json:"name"                  validate:"required,max=255"`
	Email                string   `json:"email"                 validate:"required,email,max=255"`
	Password             string   `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string   `json:"password_confirmation" validate:"eqfield=Password"`
	Roles                []string `json:"roles"                 validate:"omitempty,dive,required"`
}

type updateUserRequest struct {
	Name                 *string   `json:"name"                  validate:"omitnil,notblank,max=255"`
	Email                *string   `json:"email"                 validate:"omitnil,notblank,email,max=255"`
	Password             *string   `json:"password"              validate:"omitnil,min=8"`
	PasswordConfirmation *string   `json:"password_confirmation"`
	Roles                *[]string `json:"roles"                 validate:"omitnil,dive,required"`
}

type listRolesRequest struct {
	Page    int `query:"page"     validate:"gte=0"`
	PerPage int `query:"per_page" validate:"gte=0,lte=100"`
}

type createRoleRequest struct {
	Name        string   `json:"name"        validate:"required,max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type updateRoleRequest struct {
	Name        *string   `json:"name"        validate:"omitnil,notblank,max=255"`
	Permissions *[]string `json:"permissions" validate:"omitnil,dive,required"`
}
