package batch

import (
	"context"
	"log/slog"
	"os"
	"time"

	"goldloan-engine/internal/domain/loan"

	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type MockLoanRepository struct {
	mock.Mock
}

func (_m *MockLoanRepository) CreateLoan(ctx context.Context, l *loan.Loan) error {
	return _m.Called(ctx, l).Error(0)
}

func (_m *MockLoanRepository) GetLoanByID(ctx context.Context, loanID string) (*loan.Loan, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *loan.Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanRepository) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	return _m.Called(ctx, l).Error(0)
}

func (_m *MockLoanRepository) GetActiveLoanIDs(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanRepository) GetClosedLoanIDsAwaitingGoldReturn(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (_m *MockLoanService) OriginateLoan(ctx context.Context, in loan.OriginateLoanInput) (*loan.Loan, error) {
	ret := _m.Called(ctx, in)

	var r0 *loan.Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanService) GetLoan(ctx context.Context, loanID string) (*loan.Loan, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *loan.Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanService) CalculateEarlyRepayment(ctx context.Context, loanID string) (*loan.EarlyRepayment, error) {
	ret := _m.Called(ctx, loanID)

	var r0 *loan.EarlyRepayment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.EarlyRepayment)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanService) RecordPayment(ctx context.Context, loanID string, in loan.RecordPaymentInput) (*loan.Payment, error) {
	ret := _m.Called(ctx, loanID, in)

	var r0 *loan.Payment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.Payment)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanService) ApprovePayment(ctx context.Context, loanID, paymentID string) error {
	return _m.Called(ctx, loanID, paymentID).Error(0)
}

func (_m *MockLoanService) UpgradeInterestRate(ctx context.Context, loanID, reason string) (*loan.Loan, error) {
	ret := _m.Called(ctx, loanID, reason)

	var r0 *loan.Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*loan.Loan)
	}
	return r0, ret.Error(1)
}

func (_m *MockLoanService) ScheduleGoldReturn(ctx context.Context, loanID string, date time.Time, notes string) error {
	return _m.Called(ctx, loanID, date, notes).Error(0)
}

func (_m *MockLoanService) MarkGoldReturned(ctx context.Context, loanID, returnedBy, notes string) error {
	return _m.Called(ctx, loanID, returnedBy, notes).Error(0)
}

func (_m *MockLoanService) AddGoldReturnReminder(ctx context.Context, loanID string, reminderType loan.ReminderType, sentTo, message string) error {
	return _m.Called(ctx, loanID, reminderType, sentTo, message).Error(0)
}

func (_m *MockLoanService) InitializeGoldReturnStatus(ctx context.Context, loanID string) error {
	return _m.Called(ctx, loanID).Error(0)
}

func (_m *MockLoanService) MarkGoldReturnOverdue(ctx context.Context, loanID string) error {
	return _m.Called(ctx, loanID).Error(0)
}

func (_m *MockLoanService) MarkReadyForAuction(ctx context.Context, loanID, notes, by string) error {
	return _m.Called(ctx, loanID, notes, by).Error(0)
}

func (_m *MockLoanService) ScheduleAuction(ctx context.Context, loanID string, date time.Time, notes, by string) error {
	return _m.Called(ctx, loanID, date, notes, by).Error(0)
}

func (_m *MockLoanService) MarkAsAuctioned(ctx context.Context, loanID string, date time.Time, notes, by string) error {
	return _m.Called(ctx, loanID, date, notes, by).Error(0)
}

func (_m *MockLoanService) CancelAuction(ctx context.Context, loanID, notes, by string) error {
	return _m.Called(ctx, loanID, notes, by).Error(0)
}
