// Package apperr defines the error kinds shared by every domain package.
//
// Domain sentinels are built with New so that callers can match either the
// precise sentinel or the broader kind:
//
//	errors.Is(err, tracking.ErrFeedingAlreadyOpen) // precise
//	errors.Is(err, apperr.ErrConflict)             // any conflict
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("unauthenticated")
	ErrForbidden  = errors.New("forbidden")
	ErrStore      = errors.New("store error")
)

type Error struct {
	Kind    error
	Code    string
	Message string
	cause   error
}

func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// Validation reports malformed input caught before any I/O.
func Validation(code, format string, args ...any) error {
	return New(ErrValidation, code, fmt.Sprintf(format, args...))
}

// Store wraps an opaque persistence failure. The original message is kept.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: ErrStore, Code: "store_error", Message: op, cause: err}
}

// CodeOf returns the machine code carried by err, or fallback.
func CodeOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return fallback
}

// MessageOf returns the human message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
