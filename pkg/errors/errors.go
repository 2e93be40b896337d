package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeHTTPStatus   ErrorType = "http_status"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeAPI          ErrorType = "api"
	ErrorTypeInvalidImage ErrorType = "invalid_image"
	ErrorTypeExhausted    ErrorType = "exhausted"
	ErrorTypeTimestamp    ErrorType = "timestamp"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Sentinels identifying which remote operation ran out of attempts.
var (
	ErrMetadataExhausted = errors.New("metadata fetch exhausted")
	ErrURLResolution     = errors.New("URL resolution failed")
	ErrImageDownload     = errors.New("image download failed")
)

// Error represents a cloud API or pipeline error with type information
type Error struct {
	Type ErrorType
	// Op names the pipeline step (login, metadata, resolve, fetch, timestamp)
	Op string
	// Target identifies what the step was working on: an offset, a key, a file name
	Target  string
	Message string
	// Code is the HTTP status or the API ret code, 0 when neither applies
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg = fmt.Sprintf("%s %s", e.Op, msg)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Target != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// Exhausted builds the terminal error returned once an operation has spent
// its attempt budget. sentinel is one of the Err* values above.
func Exhausted(sentinel error, op, target string, attempts int, last error) *Error {
	return &Error{
		Type:    ErrorTypeExhausted,
		Op:      op,
		Target:  target,
		Message: fmt.Sprintf("%v after %d attempts", sentinel, attempts),
		Err:     errors.Join(sentinel, last),
	}
}

// IsRetryable checks if an error type should be retried after a fresh login.
// A non-200 HTTP status is never retried; it aborts the run.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeAPI, ErrorTypeInvalidImage:
		return true
	default:
		return false
	}
}

// TypeOf extracts the ErrorType from err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}
