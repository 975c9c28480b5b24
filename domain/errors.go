package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrNoTransaction      = NewError(ErrCodeNotFound, "no active transaction")
	ErrUnknownDocument    = NewError(ErrCodeNotFound, "unknown document")
	ErrTransactionClosed  = NewError(ErrCodeConflict, "transaction is closed")
	ErrAlreadySigned      = NewError(ErrCodeConflict, "document already signed")
	ErrVersionConflict    = NewError(ErrCodeConflict, "transaction was modified concurrently")
	ErrImmutableField     = NewError(ErrCodeInvalid, "field cannot be modified")
	ErrInvalidSignature   = NewError(ErrCodeInvalid, "signature capture is empty")
	ErrClosingBlocked     = NewError(ErrCodeInvalid, "required documents are not signed")
	ErrInvalidTransition  = NewError(ErrCodeInvalid, "status transition not allowed")
	ErrOfferNotGenerated  = NewError(ErrCodeInvalid, "offer has not been generated")
	ErrInvalidRole        = NewError(ErrCodeInvalid, "role must be buyer or seller")
	ErrInvalidPlan        = NewError(ErrCodeInvalid, "unknown payment plan")
	ErrInvalidPayload     = NewError(ErrCodeInvalid, "invalid payload")
	ErrNotAtClosingStep   = NewError(ErrCodeInvalid, "closing is only available from the closing step")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrPersistenceFailure = NewError(ErrCodeInternal, "transaction could not be persisted")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	var pErr *InvalidPathError
	if errors.As(err, &pErr) {
		return code == ErrCodeInvalid
	}
	var oErr *IncompleteOfferError
	if errors.As(err, &oErr) {
		return code == ErrCodeInvalid
	}
	return false
}

// InvalidPathError reports a mutation path that does not resolve to a field of the record.
type InvalidPathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *InvalidPathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid path %q at %q: %s", e.Path, e.Segment, e.Reason)
}

// IncompleteOfferError lists the offer fields that still need a value.
type IncompleteOfferError struct {
	Missing []string
}

func (e *IncompleteOfferError) Error() string {
	return "offer is incomplete: missing " + strings.Join(e.Missing, ", ")
}
