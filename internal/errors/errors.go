// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoCode              = errors.New("record has no resolvable instrument code")
	ErrDocumentUnavailable = errors.New("scan document unavailable")
	ErrFeedNotConnected    = errors.New("price feed not connected")
	ErrShareNotFound       = errors.New("share not found in watchlist")
	ErrNoTarget            = errors.New("share has no configured target")
	ErrTimeout             = errors.New("operation timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrDataNotFound        = errors.New("data not found")
	ErrDatabaseError       = errors.New("database error")
)

// DocumentError represents a failure fetching or decoding a scan document.
// Fetch failures are never fatal: the document degrades to an empty list and
// the other sources still populate the view.
type DocumentError struct {
	Name string // custom-hits, daily-movers, daily-hilo
	Op   string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document error [%s] %s: %v", e.Name, e.Op, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// NewDocumentError creates a new DocumentError.
func NewDocumentError(name, op string, err error) *DocumentError {
	return &DocumentError{
		Name: name,
		Op:   op,
		Err:  err,
	}
}

// FeedError represents an error from the live-price feed.
type FeedError struct {
	Op  string
	URL string
	Err error
}

func (e *FeedError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("feed error [%s] %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("feed error [%s]: %v", e.Op, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(op, url string, err error) *FeedError {
	return &FeedError{
		Op:  op,
		URL: url,
		Err: err,
	}
}

// DataError represents a data-related error tied to one instrument.
type DataError struct {
	DataType string
	Code     string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Code, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, code, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
