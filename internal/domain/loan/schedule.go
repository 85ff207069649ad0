package loan

import (
	"time"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// BuildSchedule lays down the monthly due-date ledger: termMonths entries,
// entry i due i calendar months after startDate, all pending with a uniform
// amount. Rounding remainders are absorbed by the closure check at payment
// time, not redistributed across entries.
func BuildSchedule(startDate time.Time, termMonths int, installmentAmount decimal.Decimal) ([]Installment, error) {
	if startDate.IsZero() {
		return nil, apperrors.NewValidationError("startDate", "is required")
	}
	if termMonths <= 0 {
		return nil, apperrors.NewValidationError("termMonths", "must be positive")
	}
	if installmentAmount.IsNegative() {
		return nil, apperrors.NewValidationError("installmentAmount", "must not be negative")
	}

	startDate = truncateToDay(startDate)
	schedule := make([]Installment, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		schedule = append(schedule, Installment{
			Number:     i,
			DueDate:    startDate.AddDate(0, i, 0),
			Amount:     installmentAmount,
			AmountPaid: decimal.Zero,
			Status:     InstallmentPending,
		})
	}
	return schedule, nil
}
