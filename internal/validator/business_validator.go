package validator

import (
	"regexp"
	"strings"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	phonePattern    = regexp.MustCompile(`^[0-9+\-\s]{6,15}$`)
)

// registerBusinessRules registers custom business rule validators
func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})

	v.validate.RegisterValidation("resource_kind", func(fl validator.FieldLevel) bool {
		kind := models.ResourceKind(fl.Field().String())
		for _, valid := range models.ResourceKinds {
			if kind == valid {
				return true
			}
		}
		return false
	})

	v.validate.RegisterValidation("content_kind", func(fl validator.FieldLevel) bool {
		kind := models.ContentKind(fl.Field().String())
		for _, valid := range models.ContentKinds {
			if kind == valid {
				return true
			}
		}
		return false
	})

	v.validate.RegisterValidation("inquiry_kind", func(fl validator.FieldLevel) bool {
		kind := models.InquiryKind(fl.Field().String())
		for _, valid := range models.InquiryKinds {
			if kind == valid {
				return true
			}
		}
		return false
	})

	v.validate.RegisterValidation("thread_status", func(fl validator.FieldLevel) bool {
		switch models.ThreadStatus(fl.Field().String()) {
		case models.ThreadOpen, models.ThreadClosed, models.ThreadFeatured:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("thread_order", func(fl validator.FieldLevel) bool {
		switch models.ThreadOrder(fl.Field().String()) {
		case "", models.OrderRecent, models.OrderPopular, models.OrderOldest:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("vote_polarity", func(fl validator.FieldLevel) bool {
		switch models.VotePolarity(fl.Field().String()) {
		case models.VoteUp, models.VoteDown:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	// Trimmed length so whitespace-only bodies are rejected.
	v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// ValidateLinkOrFile enforces that a library entry carries a URL, a file, or both.
func (v *Validator) ValidateLinkOrFile(url string, hasFile bool) ValidationErrors {
	if strings.TrimSpace(url) != "" || hasFile {
		return nil
	}

	return ValidationErrors{{
		Field:   "url",
		Message: "Debes proporcionar un ENLACE (URL) o subir un ARCHIVO.",
		Rule:    "link_or_file",
	}}
}

// ValidateUniqueAccount reports username or email collisions with another account.
func (v *Validator) ValidateUniqueAccount(conflict *models.User, username, email string) ValidationErrors {
	if conflict == nil {
		return nil
	}

	var errs ValidationErrors
	if conflict.Username == username {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "Este nombre de usuario ya está en uso.",
			Value:   username,
			Rule:    "unique",
		})
	}
	if strings.EqualFold(conflict.Email, email) {
		errs = append(errs, ValidationError{
			Field:   "email",
			Message: "Este correo electrónico ya está registrado.",
			Value:   email,
			Rule:    "unique",
		})
	}
	return errs
}
