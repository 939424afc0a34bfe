package cli

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/siteofsites/internal/common"
	"github.com/go-playground/validator/v10"
)

// Forms are checked before anything is sent to the server. String lengths
// are counted in runes.

type LoginForm struct {
	Email    string `label:"Email" validate:"required,email"`
	Password string `label:"Password" validate:"required,min=8"`
}

type RegisterForm struct {
	Email           string `label:"Email" validate:"required,email"`
	Nickname        string `label:"Nickname" validate:"required,min=2,max=20"`
	Password        string `label:"Password" validate:"required,min=8"`
	ConfirmPassword string `label:"Password confirmation" validate:"eqfield=Password"`
}

type ProfileForm struct {
	Nickname    string `label:"Nickname" validate:"required,min=2,max=20"`
	Description string `label:"Description"`
}

type ProjectForm struct {
	Title       string `label:"Title" validate:"required,max=100"`
	Description string `label:"Description"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		return f.Name
	})
	return v
}

// validateForm returns an error wrapping common.ErrValidation whose message
// describes the first invalid field.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, fieldMessage(ves[0]))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// validationMessage strips the sentinel prefix for display.
func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return fieldMessage(ves[0])
	}
	msg := err.Error()
	prefix := common.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
