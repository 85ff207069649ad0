package loan

import (
	"fmt"
	"time"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordPaymentInput struct {
	Amount        decimal.Decimal
	Method        string
	TransactionID *string
	BankName      *string
	EnteredBy     string
}

func (in RecordPaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return apperrors.NewValidationError("amount", "must be positive")
	}
	if in.Method == "" {
		return apperrors.NewValidationError("method", "is required")
	}
	if in.EnteredBy == "" {
		return apperrors.NewValidationError("enteredBy", "is required")
	}
	return nil
}

// RecordPayment applies an incoming payment to the earliest open installment
// and re-prices the amount owed to the settlement value as of now. The full
// incoming amount counts toward totalPaid even when it exceeds the current
// installment; the excess reduces the remaining balance without being
// attributed to later installments until a later payment visits them.
func (l *Loan) RecordPayment(in RecordPaymentInput, now time.Time, cal HolidayCalendar) (*Payment, []Event, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if l.Status != StatusActive {
		return nil, nil, fmt.Errorf("%w: cannot record payment on loan %s", apperrors.ErrLoanClosed, l.ID)
	}

	installment := l.currentInstallment()
	if installment == nil {
		// Should not happen while ACTIVE, but guards run before mutation.
		return nil, nil, fmt.Errorf("%w: loan %s", apperrors.ErrNoPendingInstallments, l.ID)
	}

	pricing, err := ComputeEarlyRepayment(l, now, cal)
	if err != nil {
		return nil, nil, err
	}

	l.TotalPayment = pricing.TotalAmount

	applied := decimal.Min(in.Amount, installment.Amount.Sub(installment.AmountPaid))
	installment.AmountPaid = installment.AmountPaid.Add(applied)
	if installment.AmountPaid.GreaterThanOrEqual(installment.Amount) {
		installment.Status = InstallmentPaid
	} else {
		installment.Status = InstallmentPartial
	}

	l.TotalPaid = l.TotalPaid.Add(in.Amount)
	l.recalcRemainingBalance()

	status := PaymentPending
	if in.Method == PaymentMethodHandcash {
		status = PaymentSuccess
	}

	payment := Payment{
		ID:                       uuid.NewString(),
		Amount:                   in.Amount,
		Date:                     now,
		Method:                   in.Method,
		TransactionID:            in.TransactionID,
		BankName:                 in.BankName,
		EnteredBy:                in.EnteredBy,
		InstallmentNumber:        installment.Number,
		RemainingBalanceSnapshot: l.RemainingBalance,
		Status:                   status,
	}
	l.Payments = append(l.Payments, payment)
	l.UpdatedAt = now

	events := []Event{PaymentRecordedEvent{
		LoanID:            l.ID,
		CustomerID:        l.CustomerID,
		PaymentID:         payment.ID,
		Amount:            payment.Amount,
		Method:            payment.Method,
		InstallmentNumber: payment.InstallmentNumber,
		RemainingBalance:  payment.RemainingBalanceSnapshot,
		Timestamp:         now,
	}}

	if RoundMoney(l.TotalPaid).GreaterThanOrEqual(RoundMoney(l.TotalPayment)) || !l.RemainingBalance.IsPositive() {
		l.close(now)
		events = append(events, LoanClosedEvent{
			LoanID:           l.ID,
			CustomerID:       l.CustomerID,
			ClosedDate:       now,
			TotalPaid:        l.TotalPaid,
			GoldReturnStatus: l.GoldReturnStatus,
		})
	}

	return &l.Payments[len(l.Payments)-1], events, nil
}

// ApprovePayment transitions a pending payment to success in place.
func (l *Loan) ApprovePayment(paymentID string, now time.Time) error {
	for i := range l.Payments {
		if l.Payments[i].ID != paymentID {
			continue
		}
		if l.Payments[i].Status == PaymentSuccess {
			return fmt.Errorf("%w: payment %s", apperrors.ErrPaymentAlreadyApproved, paymentID)
		}
		l.Payments[i].Status = PaymentSuccess
		l.UpdatedAt = now
		return nil
	}
	return fmt.Errorf("%w: payment %s on loan %s", apperrors.ErrPaymentNotFound, paymentID, l.ID)
}
