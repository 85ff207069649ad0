package loan

import (
	"testing"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handcashInput(amount int64) RecordPaymentInput {
	return RecordPaymentInput{
		Amount:    decimal.NewFromInt(amount),
		Method:    PaymentMethodHandcash,
		EnteredBy: "teller-7",
	}
}

func TestRecordPayment_PartialInstallment(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)

	// Nine days in, the settlement value is billed at the 15-day minimum
	// span (interest 370) with the early rebate of 7 deducted.
	p, events, err := l.RecordPayment(handcashInput(10000), date(2024, 1, 10), cal)

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "50363", l.TotalPayment.String())
	assert.Equal(t, "10000", l.TotalPaid.String())
	assert.Equal(t, "40363", l.RemainingBalance.String())

	assert.Equal(t, InstallmentPartial, l.Installments[0].Status)
	assert.Equal(t, "10000", l.Installments[0].AmountPaid.String())
	assert.Equal(t, InstallmentPending, l.Installments[1].Status)

	assert.Equal(t, 1, p.InstallmentNumber)
	assert.Equal(t, PaymentSuccess, p.Status)
	assert.Equal(t, "40363", p.RemainingBalanceSnapshot.String())

	require.Len(t, events, 1)
	recorded, ok := events[0].(PaymentRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, l.ID, recorded.LoanID)
	assert.Equal(t, StatusActive, l.Status)
}

func TestRecordPayment_OverpaymentCountsFullAmount(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)

	_, _, err := l.RecordPayment(handcashInput(20000), date(2024, 1, 10), cal)

	require.NoError(t, err)
	// The first installment absorbs only its own amount; the rest of the
	// money still reduces the balance.
	assert.Equal(t, InstallmentPaid, l.Installments[0].Status)
	assert.Equal(t, "17415", l.Installments[0].AmountPaid.String())
	assert.True(t, l.Installments[1].AmountPaid.IsZero())
	assert.Equal(t, "20000", l.TotalPaid.String())
	assert.Equal(t, "30363", l.RemainingBalance.String())
}

func TestRecordPayment_FullSettlementClosesLoan(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)

	_, events, err := l.RecordPayment(handcashInput(50363), date(2024, 1, 10), cal)

	require.NoError(t, err)
	assert.Equal(t, StatusClosed, l.Status)
	require.NotNil(t, l.ClosedDate)
	assert.True(t, l.RemainingBalance.IsZero())
	for _, inst := range l.Installments {
		assert.Equal(t, InstallmentPaid, inst.Status)
	}
	assert.Equal(t, GoldReturnPending, l.GoldReturnStatus)

	require.Len(t, events, 2)
	_, ok := events[0].(PaymentRecordedEvent)
	require.True(t, ok)
	closed, ok := events[1].(LoanClosedEvent)
	require.True(t, ok)
	assert.Equal(t, GoldReturnPending, closed.GoldReturnStatus)
}

func TestRecordPayment_SequentialPaymentsCloseLoan(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)

	_, _, err := l.RecordPayment(handcashInput(30000), date(2024, 1, 10), cal)
	require.NoError(t, err)
	require.Equal(t, StatusActive, l.Status)

	// Second payment allocates to the second installment.
	p, _, err := l.RecordPayment(handcashInput(10000), date(2024, 1, 10), cal)
	require.NoError(t, err)
	assert.Equal(t, 2, p.InstallmentNumber)

	_, _, err = l.RecordPayment(handcashInput(10363), date(2024, 1, 10), cal)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, l.Status)
}

func TestRecordPayment_BankTransferStaysPendingUntilApproved(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)
	txn := "TXN-123"
	bank := "First National"

	p, _, err := l.RecordPayment(RecordPaymentInput{
		Amount:        decimal.NewFromInt(5000),
		Method:        "bank_transfer",
		TransactionID: &txn,
		BankName:      &bank,
		EnteredBy:     "teller-7",
	}, date(2024, 1, 10), cal)

	require.NoError(t, err)
	assert.Equal(t, PaymentPending, p.Status)

	require.NoError(t, l.ApprovePayment(p.ID, date(2024, 1, 11)))
	assert.Equal(t, PaymentSuccess, l.Payments[0].Status)

	err = l.ApprovePayment(p.ID, date(2024, 1, 12))
	assert.ErrorIs(t, err, apperrors.ErrPaymentAlreadyApproved)
}

func TestApprovePayment_NotFound(t *testing.T) {
	l := newTestLoan(t)

	err := l.ApprovePayment("no-such-payment", date(2024, 1, 11))

	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestRecordPayment_RejectsClosedLoan(t *testing.T) {
	l := newTestLoan(t)
	l.close(date(2024, 1, 15))

	_, _, err := l.RecordPayment(handcashInput(1000), date(2024, 1, 16), emptyCalendar(t))

	assert.ErrorIs(t, err, apperrors.ErrLoanClosed)
	assert.True(t, apperrors.IsGuardViolation(err))
}

func TestRecordPayment_Validation(t *testing.T) {
	l := newTestLoan(t)
	cal := emptyCalendar(t)

	_, _, err := l.RecordPayment(RecordPaymentInput{Amount: decimal.Zero, Method: PaymentMethodHandcash, EnteredBy: "t"}, date(2024, 1, 10), cal)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = l.RecordPayment(RecordPaymentInput{Amount: decimal.NewFromInt(100), EnteredBy: "t"}, date(2024, 1, 10), cal)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = l.RecordPayment(RecordPaymentInput{Amount: decimal.NewFromInt(100), Method: PaymentMethodHandcash}, date(2024, 1, 10), cal)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
