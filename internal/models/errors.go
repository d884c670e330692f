package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrInputMismatch ErrorType = iota
	ErrIO
	ErrContainer
	ErrInvalidConfig
	ErrManifest
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrInputMismatch:
		return "InputMismatch"
	case ErrIO:
		return "IO"
	case ErrContainer:
		return "Container"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrManifest:
		return "Manifest"
	default:
		return "Unknown"
	}
}

// PackagerError represents an error during installer packaging
type PackagerError struct {
	Type ErrorType
	Pack string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PackagerError) Error() string {
	switch {
	case e.Pack != "" && e.Path != "":
		return fmt.Sprintf("[%s] pack %s: %s: %v", e.Type, e.Pack, e.Path, e.Err)
	case e.Pack != "":
		return fmt.Sprintf("[%s] pack %s: %v", e.Type, e.Pack, e.Err)
	case e.Path != "":
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *PackagerError) Unwrap() error {
	return e.Err
}

// IsType reports whether err wraps a *PackagerError of the given type
func IsType(err error, t ErrorType) bool {
	var pe *PackagerError
	return errors.As(err, &pe) && pe.Type == t
}
