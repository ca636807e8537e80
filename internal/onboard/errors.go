package onboard

import "fmt"

// ValidationError is a user-facing input problem. Message is shown as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// RedirectError reports that an operation's prerequisites are missing and
// the visitor belongs on another step.
type RedirectError struct {
	To Step
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.To)
}
