package apperrors

import (
	"errors"
	"strconv"
	"strings"
)

// ErrorClass represents the category of an error.
type ErrorClass string

const (
	// ErrClassConfig means the insert/update/delete feature is not configured for the table.
	ErrClassConfig ErrorClass = "CONFIG"
	// ErrClassPermission represents a 403 from the backend.
	ErrClassPermission ErrorClass = "PERMISSION"
	// ErrClassValidation covers client-side required-field checks and server 422 responses.
	ErrClassValidation ErrorClass = "VALIDATION"
	// ErrClassNotFound is a 404 that survived the trailing-slash retry.
	ErrClassNotFound ErrorClass = "NOT_FOUND"
	ErrClassNetwork  ErrorClass = "NETWORK"
	ErrClassServer   ErrorClass = "SERVER"
	ErrClassUnknown  ErrorClass = "UNKNOWN"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	Class     ErrorClass
	Operation string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Detail is the server-provided message, if any.
	Detail string
	// Fields lists the labels of missing required fields for validation errors.
	Fields []string
	Err    error
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Class))
	b.WriteByte(']')
	if e.Operation != "" {
		b.WriteByte(' ')
		b.WriteString(e.Operation)
	}
	if e.Status != 0 {
		b.WriteString(" (status ")
		b.WriteString(strconv.Itoa(e.Status))
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		b.WriteString(" missing: ")
		b.WriteString(strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(" error: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message as its detail.
func New(class ErrorClass, operation, detail string) *ClassifiedError {
	return &ClassifiedError{Class: class, Operation: operation, Detail: detail}
}

// Wrap creates a classified error around err. It returns nil for a nil err.
func Wrap(class ErrorClass, operation string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Operation: operation, Err: err}
}

// WithStatus records the HTTP status and server detail.
func (e *ClassifiedError) WithStatus(status int, detail string) *ClassifiedError {
	if e == nil {
		return nil
	}
	e.Status = status
	e.Detail = detail
	return e
}

// Validation builds a validation error listing the missing fields.
func Validation(operation string, fields []string) *ClassifiedError {
	return &ClassifiedError{Class: ErrClassValidation, Operation: operation, Fields: fields}
}

// GetClass extracts the error class from an error.
func GetClass(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ErrClassUnknown
}

// Is reports whether err is a classified error of the given class.
func Is(err error, class ErrorClass) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Class == class
}

// Status returns the HTTP status recorded on err, or zero.
func Status(err error) int {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

// UserMessage renders err the way it is shown to a user.
func UserMessage(err error) string {
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		return err.Error()
	}
	switch ce.Class {
	case ErrClassConfig:
		return "This action is not configured for the table: " + orDefault(ce.Detail, "no query defined")
	case ErrClassPermission:
		return "You do not have permission to perform this action"
	case ErrClassValidation:
		if len(ce.Fields) > 0 {
			return "Fill in the required fields: " + strings.Join(ce.Fields, ", ")
		}
		return "Validation failed: " + orDefault(ce.Detail, "invalid data")
	case ErrClassNotFound:
		return "Endpoint not found: " + orDefault(ce.Detail, ce.Operation)
	default:
		msg := "Request failed"
		if ce.Status != 0 {
			msg += " (" + strconv.Itoa(ce.Status) + ")"
		}
		if ce.Detail != "" {
			return msg + ": " + ce.Detail
		}
		if ce.Err != nil {
			return msg + ": " + ce.Err.Error()
		}
		return msg
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
