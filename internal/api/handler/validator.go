package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
// Failures come back as *domain.ValidationError keyed by JSON field name.
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() echo.Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Optional pointer fields use notblank: required accepts a pointer to "".
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})
	return &echoValidator{v: v}
}

func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &domain.ValidationError{}
	for _, fe := range ve {
		key, msg := fieldError(fe)
		out.Add(key, msg)
	}
	return out
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fieldKey turns "req.roles[1]" into "roles.1".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		ns = rest
	}
	return indexPattern.ReplaceAllString(ns, ".$1")
}

// fieldError renders one failure the way API clients expect it.
func fieldError(fe validator.FieldError) (string, string) {
	key := fieldKey(fe)
	label := strings.ReplaceAll(key, "_", " ")

	switch fe.Tag() {
	case "required", "notblank":
		return key, fmt.Sprintf("The %s field is required.", label)
	case "email":
		return key, fmt.Sprintf("The %s field must be a valid email address.", label)
	case "min":
		return key, fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	case "max":
		return key, fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "eqfield":
		base := strings.TrimSuffix(key, "_confirmation")
		return base, fmt.Sprintf("The %s field confirmation does not match.", strings.ReplaceAll(base, "_", " "))
	case "gt", "gte", "lte":
		return key, fmt.Sprintf("The %s field is out of range.", label)
	case "oneof":
		return key, fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return key, fmt.Sprintf("The %s field is invalid.", label)
	}
}

// bindAndValidate binds the request into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	return c.Validate(req)
}

// confirmed checks an optional password against its confirmation.
func confirmed(verr *domain.ValidationError, field string, value, confirmation *string) {
	if value == nil {
		return
	}
	if confirmation == nil || *confirmation != *value {
		verr.Add(field, fmt.Sprintf("The %s field confirmation does not match.", field))
	}
}
