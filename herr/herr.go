// Package herr collects the typed failure kinds the boosting engine can
// surface to a caller of fit.
package herr

import "github.com/pkg/errors"

// Kind names one of the failure categories the engine distinguishes.
type Kind int

const (
	// ConfigInvalid marks a hyperparameter that failed its constraint.
	ConfigInvalid Kind = iota
	// DataInvalid marks a problem with the training/validation dataset itself.
	DataInvalid
	// Resource marks a checkpoint/persist/broadcast failure.
	Resource
	// Stopped marks a callback-initiated early stop; not a real error.
	Stopped
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "configuration invalid"
	case DataInvalid:
		return "data invalid"
	case Resource:
		return "resource"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by fit. It names the offending
// parameter or context and wraps the underlying cause, if any.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Kind.String() + ": " + e.Field + ": " + e.Message
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Config builds a Configuration invalid error naming the offending field.
func Config(field, message string) error {
	return &Error{Kind: ConfigInvalid, Field: field, Message: message}
}

// Data builds a Data invalid error.
func Data(message string, cause error) error {
	return &Error{Kind: DataInvalid, Message: message, cause: errors.WithStack(cause)}
}

// ResourceErr builds a Resource error wrapping a checkpoint/persist failure.
func ResourceErr(message string, cause error) error {
	return &Error{Kind: Resource, Message: message, cause: errors.Wrap(cause, message)}
}

// Stop builds the sentinel "callback requested stop" pseudo-error.
func Stop(reason string) error {
	return &Error{Kind: Stopped, Message: reason}
}

// IsStop reports whether err is a callback-initiated stop.
func IsStop(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Stopped
	}
	return false
}
