package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProfileNotFound     = errors.New("import profile not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrConflict reports a storage-level constraint rejection, e.g. deleting
	// an entity that other rows still reference.
	ErrConflict = errors.New("conflict with existing resource")

	ErrInternalError = errors.New("internal error")
)

// ValidationError is a domain rule violation with a human-readable reason.
// Callers map it to a 400-equivalent.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) ValidationError {
	return ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Well-known validation failures
var (
	ErrInvalidAmount          = ValidationError{Reason: "amount must be greater than zero"}
	ErrInvalidTransactionType = ValidationError{Reason: "type must be income or expense"}
	ErrDescriptionRequired    = ValidationError{Reason: "description is required"}
	ErrDescriptionTooLong     = ValidationError{Reason: "description exceeds maximum length"}
	ErrNameRequired           = ValidationError{Reason: "name is required"}
	ErrInvalidMonth           = ValidationError{Reason: "month must be in YYYY-MM format"}

	ErrCategoryDepth        = ValidationError{Reason: "cannot create more than 2 levels of category hierarchy"}
	ErrCategoryTypeMismatch = ValidationError{Reason: "child category must have the same type as parent"}
	ErrSystemCategory       = ValidationError{Reason: "system categories cannot be modified"}

	ErrBudgetExists = ValidationError{Reason: "budget already exists for this category and month"}

	ErrSameAccountTransfer    = ValidationError{Reason: "source and destination accounts must differ"}
	ErrTransferFieldImmutable = ValidationError{Reason: "transfer category, account, type, and tags cannot be changed"}
	ErrNotATransfer           = ValidationError{Reason: "transaction is not a transfer"}
	ErrIsTransfer             = ValidationError{Reason: "transfer legs must be modified through the transfer endpoints"}
)

// Validation constants
const (
	MaxDescriptionLength = 500
	MaxNameLength        = 100
	MaxTagNameLength     = 50
)
