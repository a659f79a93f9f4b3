package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrNotFound ErrorType = iota
	ErrNotAvailable
	ErrDatabase
	ErrInvalidConfig
	ErrSignature
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrNotAvailable:
		return "NotAvailable"
	case ErrDatabase:
		return "Database"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrSignature:
		return "Signature"
	default:
		return "Unknown"
	}
}

// ProvenanceError represents an error while answering a provenance query
type ProvenanceError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *ProvenanceError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *ProvenanceError) Unwrap() error {
	return e.Err
}

// NewNotFound reports that no package matches subject.
func NewNotFound(subject string, format string, args ...interface{}) error {
	return &ProvenanceError{
		Type:    ErrNotFound,
		Package: subject,
		Err:     fmt.Errorf(format, args...),
	}
}

// IsType reports whether err carries a ProvenanceError of type t anywhere in
// its chain.
func IsType(err error, t ErrorType) bool {
	var pe *ProvenanceError
	if errors.As(err, &pe) {
		return pe.Type == t
	}
	return false
}

// IsNotFound reports whether err means no package matched the query.
func IsNotFound(err error) bool {
	return IsType(err, ErrNotFound)
}

// IsNotAvailable reports whether err means the requested data cannot be
// produced by this system.
func IsNotAvailable(err error) bool {
	return IsType(err, ErrNotAvailable)
}
