package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/counseling-api/internal/models"
)

var (
	// ErrStudentNotFound indicates the student record does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrAdminNotFound indicates the staff record does not exist.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAppointmentNotFound indicates the appointment does not exist or is outside the caller's scope.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrDuplicateEmail indicates another principal of the same kind already uses the email.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrVersionConflict indicates the caller acted on a stale appointment version.
	ErrVersionConflict = errors.New("appointment was modified by another request")
	// ErrInvalidTransition is the sentinel wrapped by TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden indicates the caller may not act on the resource.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrUnauthenticated indicates the token no longer maps to an active principal.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials indicates a bad email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotProvisioned indicates the account has no password set.
	ErrAccountNotProvisioned = errors.New("account not set up for login, please contact administrator")
	// ErrAccountInactive indicates the account was deactivated.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrNotificationFailure indicates an email could not be delivered.
	ErrNotificationFailure = errors.New("notification could not be delivered")
	// ErrInvalidVersionHeader indicates the If-Match header does not carry a positive version.
	ErrInvalidVersionHeader = errors.New("if-match header must carry a positive version")
	// ErrFeedbackNotAllowed indicates feedback was submitted before the session completed.
	ErrFeedbackNotAllowed = errors.New("feedback can only be submitted for completed appointments")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports semantic input problems found after struct validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field.Field, field.Message))
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// TransitionError reports a status change the workflow does not allow.
type TransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
