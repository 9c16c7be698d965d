package services

import (
	"errors"
	"fmt"

	"github.com/clinic-portal/portal-service/internal/validator"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInquiryNotFound  = errors.New("inquiry not found")
	ErrThreadNotFound   = errors.New("thread not found")
	ErrReplyNotFound    = errors.New("reply not found")
	ErrResultNotFound   = errors.New("test result not found")
	ErrContentNotFound  = errors.New("content not found")
	ErrFileNotFound     = errors.New("file not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrThreadClosed       = errors.New("thread is closed")

	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value}}
}

// PermissionError is returned when the caller's role does not allow an action.
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError carries a user-facing message for a rule that is not a field error.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve) || errors.Is(err, ErrValidationFailed)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe) || errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether err is any of the service not-found sentinels.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrResourceNotFound, ErrCategoryNotFound, ErrInquiryNotFound,
		ErrThreadNotFound, ErrReplyNotFound, ErrResultNotFound, ErrContentNotFound, ErrFileNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
