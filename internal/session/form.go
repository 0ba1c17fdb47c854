package session

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/blackmichael/karma-feed/internal/api"
	"github.com/blackmichael/karma-feed/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

// RegistrationForm is the sign-up input. Field names in validation errors
// match the backend's so local and remote errors share one shape.
type RegistrationForm struct {
	Username  string `form:"username" validate:"required"`
	Email     string `form:"email" validate:"required,email"`
	Password  string `form:"password" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required"`
}

// Validate runs the checks done before any network call. A password
// mismatch is reported first and alone; otherwise every failing field gets
// one message. It returns nil when the form is valid.
func (f RegistrationForm) Validate() domain.FieldErrors {
	if f.Password != f.Password2 {
		return domain.FieldErrors{"password": "Passwords don't match"}
	}

	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.FieldErrors{"non_field_errors": err.Error()}
	}

	fields := make(domain.FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func (f RegistrationForm) request() api.RegisterRequest {
	return api.RegisterRequest{
		Username:  f.Username,
		Email:     f.Email,
		Password:  f.Password,
		Password2: f.Password2,
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Field() == "password" {
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}
