// Package apierr maps client-facing error kinds to HTTP status codes so
// handlers translate them the same way everywhere.
package apierr

import "net/http"

// Kind is one of the error kinds a client-facing operation can fail with.
type Kind string

const (
	NotLeader          Kind = "NOT_LEADER"
	NoServersAvailable Kind = "NO_SERVERS_AVAILABLE"
	PermissionDenied   Kind = "PERMISSION_DENIED"
	NotFound           Kind = "NOT_FOUND"
	InvalidCredentials Kind = "INVALID_CREDENTIALS"
	Duplicate          Kind = "DUPLICATE"
	NoStagedData       Kind = "NO_STAGED_DATA"
	StorageError       Kind = "STORAGE_ERROR"
)

// Error is a client-facing error carrying a Kind and a human message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error for the given kind, defaulting the message to the kind.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Status returns the HTTP status code for a Kind.
func Status(kind Kind) int {
	switch kind {
	case NotLeader, NoStagedData, Duplicate:
		return http.StatusBadRequest
	case InvalidCredentials:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case StorageError:
		return http.StatusInternalServerError
	case NoServersAvailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, if it is one.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
