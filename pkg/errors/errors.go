package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure coming out of the patient store client
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotFound
	KindUnreachable
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUnreachable:
		return "unreachable"
	case KindServer:
		return "server_error"
	default:
		return "unknown"
	}
}

// AppError represents a normalised application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on kind so the sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidArgument = &AppError{Kind: KindInvalidArgument}
	ErrNotFound        = &AppError{Kind: KindNotFound}
	ErrUnreachable     = &AppError{Kind: KindUnreachable}
	ErrServer          = &AppError{Kind: KindServer}
)

// Messages shown for normalised store failures
const (
	MsgUnreachable = "Cannot connect to server. Please check your network connection or the server might be down."
	MsgNotFound    = "The requested resource was not found."
	MsgInternal    = "Internal server error. Please try again later."
)

// Error constructors
func InvalidArgument(message string) *AppError {
	return &AppError{
		Kind:    KindInvalidArgument,
		Message: message,
	}
}

func NotFound(message string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Status:  http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

func Unreachable(err error) *AppError {
	return &AppError{
		Kind:    KindUnreachable,
		Message: MsgUnreachable,
		Err:     err,
	}
}

// FromStatus maps a non-2xx store response to an error.
func FromStatus(status int, statusText string) *AppError {
	switch {
	case status == http.StatusNotFound:
		return &AppError{Kind: KindNotFound, Status: status, Message: MsgNotFound}
	case status == http.StatusInternalServerError:
		return &AppError{Kind: KindServer, Status: status, Message: MsgInternal}
	case status >= 500:
		return &AppError{Kind: KindServer, Status: status, Message: serverMessage(status, statusText)}
	default:
		return &AppError{Kind: KindUnknown, Status: status, Message: serverMessage(status, statusText)}
	}
}

func serverMessage(status int, statusText string) string {
	return fmt.Sprintf("Server Error: Code: %d, Message: %s", status, statusText)
}

// KindOf returns the kind of the first AppError in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// MessageOf returns the user facing message of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// StatusOf returns the store status code carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
