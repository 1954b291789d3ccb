package workspace

import (
	"errors"
	"strings"
)

var (
	ErrOwnerRequired = errors.New("userId is required")
	ErrAccessDenied  = errors.New("access denied: missing management permission")
	ErrNoSelection   = errors.New("no entity selected")
	ErrSuperseded    = errors.New("load superseded by a newer request")
)

// GenericMessage is shown when an error carries no usable text.
const GenericMessage = "Something went wrong. Please try again."

// ServerMessager is implemented by errors that carry a message written by the
// backend for display.
type ServerMessager interface {
	ServerMessage() string
}

// Message converts err into the one string shown to the user: the
// server-provided message, else the error text, else GenericMessage.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var sm ServerMessager
	if errors.As(err, &sm) {
		if m := strings.TrimSpace(sm.ServerMessage()); m != "" {
			return m
		}
	}
	if m := strings.TrimSpace(err.Error()); m != "" {
		return m
	}
	return GenericMessage
}

// ValidationError is a client-side precondition failure on one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
