package model

import (
	"errors"
	"strings"
)

const (
	MessageDeviceNotFound      = "Device not found"
	MessageCannotDeleteInUse   = "Cannot delete a device that is in use"
	MessageCannotUpdateInUse   = "Cannot update name or brand while device is in use"
	MessageIncompleteReplace   = "State is required to replace a device"
	MessageNameRequired        = "Name is required"
	MessageBrandRequired       = "Brand is required"
	MessageStateRequired       = "State is required"
	MessageStateInvalid        = "State must be one of AVAILABLE, IN_USE, MAINTENANCE"
	MessageInternalServerError = "Something went wrong. Please try again later."
)

var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrIllegalDeviceState = errors.New("illegal device state")
	ErrInvalidDeviceID    = errors.New("invalid device ID")
	ErrInvalidState       = errors.New("invalid device state")
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDuplicateDevice    = errors.New("device already exists")
	ErrUnknownField       = errors.New("unknown device field")

	ErrCannotDeleteInUseDevice = &IllegalStateError{Reason: MessageCannotDeleteInUse}
	ErrCannotUpdateInUseDevice = &IllegalStateError{Reason: MessageCannotUpdateInUse}
	ErrIncompleteReplacement   = &IllegalStateError{Reason: MessageIncompleteReplace}
)

// IllegalStateError is a lifecycle rule rejection. Reason is shown to clients verbatim.
type IllegalStateError struct {
	Reason string
}

func (e *IllegalStateError) Error() string {
	return e.Reason
}

func (e *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalDeviceState
}

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors struct {
	Errors []ValidationError
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]ValidationError, 0)}
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		messages = append(messages, e.Message)
	}

	return strings.Join(messages, "; ")
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ErrOrNil lets callers return the collection directly without a typed-nil error.
func (v *ValidationErrors) ErrOrNil() error {
	if v.HasErrors() {
		return v
	}

	return nil
}
