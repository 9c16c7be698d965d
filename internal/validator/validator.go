package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a business validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Messages returns the user-facing messages in field order.
func (ve ValidationErrors) Messages() []string {
	messages := make([]string, 0, len(ve))
	for _, e := range ve {
		messages = append(messages, e.Message)
	}
	return messages
}

// Validator wraps go-playground/validator with the portal's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report form field names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()

	return v
}

// Validate runs struct tags and returns ValidationErrors, or nil when s is valid.
func (v *Validator) Validate(s interface{}) error {
	if errs := v.ValidateStruct(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) ValidateStruct(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts go-playground errors into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio.", field)
	case "email":
		return "Introduce un correo electrónico válido."
	case "url":
		return "Introduce un enlace (URL) válido."
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres.", field, fe.Param())
	case "max":
		return fmt.Sprintf("El campo %s no puede superar %s caracteres.", field, fe.Param())
	case "eqfield":
		return "Las contraseñas no coinciden."
	case "hexcolor":
		return "El color debe tener formato hexadecimal (#RRGGBB)."
	case "username":
		return "El nombre de usuario solo admite letras, números y los caracteres @ . + - _"
	case "phone":
		return "El teléfono solo admite dígitos, espacios y los signos + -"
	case "role", "resource_kind", "content_kind", "inquiry_kind", "thread_status", "vote_polarity", "thread_order":
		return fmt.Sprintf("El valor de %s no es válido.", field)
	default:
		return fmt.Sprintf("El campo %s no es válido.", field)
	}
}
