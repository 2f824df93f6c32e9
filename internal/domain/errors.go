package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain-specific errors
type ErrorType string

const (
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeTransient   ErrorType = "transient"
	ErrorTypeFatal       ErrorType = "fatal"
	ErrorTypeExhausted   ErrorType = "exhausted"
	ErrorTypeCorruption  ErrorType = "corruption"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeIO          ErrorType = "io"
)

// DomainError represents a classified error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func RateLimitError(message string, err error) *DomainError {
	return NewError(ErrorTypeRateLimited, message, err)
}

func TransientError(message string, err error) *DomainError {
	return NewError(ErrorTypeTransient, message, err)
}

func FatalError(message string, err error) *DomainError {
	return NewError(ErrorTypeFatal, message, err)
}

func ExhaustedError(message string, err error) *DomainError {
	return NewError(ErrorTypeExhausted, message, err)
}

func CorruptionError(message string, err error) *DomainError {
	return NewError(ErrorTypeCorruption, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// TypeOf returns the classification of err, or "" for unclassified errors.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsRetryable reports whether another attempt against the backend may
// succeed. Only rate-limit and transient failures qualify.
func IsRetryable(err error) bool {
	t := TypeOf(err)
	return t == ErrorTypeRateLimited || t == ErrorTypeTransient
}

// IsTerminal reports whether err ends the current page's attempts for good.
func IsTerminal(err error) bool {
	t := TypeOf(err)
	return t == ErrorTypeFatal || t == ErrorTypeExhausted
}

// ErrNoMorePages is returned by a PageIterator when the source is exhausted.
var ErrNoMorePages = errors.New("no more pages")

// ErrEmptyPage marks a page with no usable content. Retrying cannot help,
// so it is always wrapped in a fatal error.
var ErrEmptyPage = errors.New("page has no usable content")
