package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrConflict = errors.New("resource conflict")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	// ErrVersionConflict means a concurrent writer updated the loan between
	// our read and our write. The caller must reload the aggregate and retry
	// the whole operation, never reapply a partial result.
	ErrVersionConflict = errors.New("aggregate version conflict")
)

// Guard violations. Each corresponds to a business-rule precondition checked
// before any field of the loan aggregate is mutated.
var (
	ErrLoanClosed = errors.New("loan is closed")

	ErrLoanNotClosed = errors.New("loan is not closed")

	ErrNoPendingInstallments = errors.New("no pending installments")

	ErrNoFurtherUpgrades = errors.New("no further interest rate upgrades available")

	ErrNotReadyForAuction = errors.New("loan is not ready for auction")

	ErrAlreadyAuctioned = errors.New("collateral already auctioned")

	ErrPaymentNotFound = errors.New("payment not found")

	ErrPaymentAlreadyApproved = errors.New("payment already approved")
)

// IsGuardViolation reports whether err is one of the business-rule guard
// sentinels. The HTTP layer maps these to 4xx responses carrying the guard
// message.
func IsGuardViolation(err error) bool {
	for _, guard := range []error{
		ErrLoanClosed,
		ErrLoanNotClosed,
		ErrNoPendingInstallments,
		ErrNoFurtherUpgrades,
		ErrNotReadyForAuction,
		ErrAlreadyAuctioned,
		ErrPaymentNotFound,
		ErrPaymentAlreadyApproved,
	} {
		if errors.Is(err, guard) {
			return true
		}
	}
	return false
}

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
