package loan

import (
	"fmt"
	"strings"
	"time"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusApproved LoanStatus = "APPROVED"
	StatusRejected LoanStatus = "REJECTED"
	StatusActive   LoanStatus = "ACTIVE"
	StatusClosed   LoanStatus = "CLOSED"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
)

type GoldReturnStatus string

const (
	GoldReturnPending   GoldReturnStatus = "PENDING"
	GoldReturnScheduled GoldReturnStatus = "SCHEDULED"
	GoldReturnReturned  GoldReturnStatus = "RETURNED"
	GoldReturnOverdue   GoldReturnStatus = "OVERDUE"
)

type ReminderType string

const (
	ReminderInitial  ReminderType = "INITIAL"
	ReminderFollowup ReminderType = "FOLLOWUP"
	ReminderUrgent   ReminderType = "URGENT"
	ReminderFinal    ReminderType = "FINAL"
)

type AuctionStatus string

const (
	AuctionNotReady  AuctionStatus = "NOT_READY"
	AuctionReady     AuctionStatus = "READY_FOR_AUCTION"
	AuctionScheduled AuctionStatus = "AUCTION_SCHEDULED"
	Auctioned        AuctionStatus = "AUCTIONED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

const PaymentMethodHandcash = "handcash"

// Loan is the aggregate root. Every operation in this package reads a full
// snapshot of it, mutates it in place after all guards pass, and returns the
// domain events the orchestrator must dispatch after persisting.
type Loan struct {
	ID         string
	Version    int64
	CustomerID string

	Principal            decimal.Decimal
	TermMonths           int
	OriginalInterestRate float64
	CurrentInterestRate  float64
	CurrentUpgradeLevel  int
	DisbursementDate     time.Time

	Status     LoanStatus
	ClosedDate *time.Time

	// TotalPayment is the amount currently owed for full closure. It is
	// re-derived on every payment and every rate upgrade, never fixed at
	// origination.
	TotalPayment     decimal.Decimal
	TotalPaid        decimal.Decimal
	RemainingBalance decimal.Decimal

	Installments   []Installment
	Payments       []Payment
	UpgradeHistory []RateUpgrade

	GoldItems               []GoldItem
	GoldReturnStatus        GoldReturnStatus
	GoldReturnDate          *time.Time
	GoldReturnScheduledDate *time.Time
	GoldReturnNotes         string
	GoldReturnReminders     []GoldReturnReminder

	AuctionStatus        AuctionStatus
	AuctionReadyDate     *time.Time
	AuctionScheduledDate *time.Time
	AuctionDate          *time.Time
	AuctionNotifications []AuctionNotification

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Installment struct {
	Number     int
	DueDate    time.Time
	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
	Status     InstallmentStatus
}

type Payment struct {
	ID                string
	Amount            decimal.Decimal
	Date              time.Time
	Method            string
	TransactionID     *string
	BankName          *string
	EnteredBy         string
	InstallmentNumber int
	// RemainingBalanceSnapshot captures the balance at the instant the
	// payment was recorded, before any later re-pricing.
	RemainingBalanceSnapshot decimal.Decimal
	Status                   PaymentStatus
}

type RateUpgrade struct {
	FromRate       float64
	ToRate         float64
	UpgradeDate    time.Time
	Reason         string
	NewTermEndDate time.Time
}

type GoldItem struct {
	Description string
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
}

type GoldReturnReminder struct {
	SentDate time.Time
	Type     ReminderType
	SentTo   string
	Message  string
}

type AuctionNotification struct {
	Date    time.Time
	Type    string
	Actor   string
	Message string
}

// NewLoan originates an active loan: prices the full term at the original
// rate and lays down the monthly installment ledger.
func NewLoan(customerID string, principal decimal.Decimal, termMonths int, annualRatePct float64, disbursementDate time.Time, goldItems []GoldItem, now time.Time) (*Loan, error) {
	if !principal.IsPositive() {
		return nil, apperrors.NewValidationError("principal", "must be positive")
	}
	if termMonths <= 0 {
		return nil, apperrors.NewValidationError("termMonths", "must be positive")
	}
	if annualRatePct <= 0 {
		return nil, apperrors.NewValidationError("interestRate", "must be positive")
	}
	if disbursementDate.IsZero() {
		return nil, apperrors.NewValidationError("disbursementDate", "is required")
	}
	if customerID == "" {
		return nil, apperrors.NewValidationError("customerId", "is required")
	}

	disbursementDate = truncateToDay(disbursementDate)
	termEnd := disbursementDate.AddDate(0, termMonths, 0)
	breakdown, err := ComputeInterest(principal, annualRatePct, disbursementDate, termEnd)
	if err != nil {
		return nil, err
	}

	installmentAmount := RoundMoney(breakdown.TotalAmount.Div(decimal.NewFromInt(int64(termMonths))))
	schedule, err := BuildSchedule(disbursementDate, termMonths, installmentAmount)
	if err != nil {
		return nil, err
	}

	l := &Loan{
		ID:                   newLoanID(disbursementDate),
		CustomerID:           customerID,
		Principal:            principal,
		TermMonths:           termMonths,
		OriginalInterestRate: annualRatePct,
		CurrentInterestRate:  annualRatePct,
		CurrentUpgradeLevel:  0,
		DisbursementDate:     disbursementDate,
		Status:               StatusActive,
		TotalPayment:         breakdown.TotalAmount,
		TotalPaid:            decimal.Zero,
		Installments:         schedule,
		GoldItems:            goldItems,
		AuctionStatus:        AuctionNotReady,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	l.RemainingBalance = l.TotalPayment
	return l, nil
}

func newLoanID(disbursementDate time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("GL-%s-%s", disbursementDate.Format("2006"), suffix)
}

// recalcRemainingBalance enforces the ledger invariant
// remainingBalance == max(0, totalPayment - totalPaid).
func (l *Loan) recalcRemainingBalance() {
	balance := l.TotalPayment.Sub(l.TotalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	l.RemainingBalance = balance
}

// currentInstallment returns the earliest installment still accepting money.
func (l *Loan) currentInstallment() *Installment {
	for i := range l.Installments {
		if l.Installments[i].Status == InstallmentPending || l.Installments[i].Status == InstallmentPartial {
			return &l.Installments[i]
		}
	}
	return nil
}

// close settles the loan: every installment is forced to PAID regardless of
// rounding remainders in the individually tracked amounts, and the
// gold-return lifecycle is started.
func (l *Loan) close(now time.Time) {
	closed := now
	l.Status = StatusClosed
	l.ClosedDate = &closed
	for i := range l.Installments {
		l.Installments[i].Status = InstallmentPaid
		l.Installments[i].AmountPaid = l.Installments[i].Amount
	}
	l.initGoldReturnStatus()
}

// initGoldReturnStatus sets the initial collateral handover state. Loans
// with no physical collateral weight are marked RETURNED system-side.
func (l *Loan) initGoldReturnStatus() {
	if l.hasPhysicalCollateral() {
		l.GoldReturnStatus = GoldReturnPending
	} else {
		l.GoldReturnStatus = GoldReturnReturned
	}
}

func (l *Loan) hasPhysicalCollateral() bool {
	for _, item := range l.GoldItems {
		if item.NetWeight.IsPositive() {
			return true
		}
	}
	return false
}

// TotalNetWeight sums the pledged net gold weight in grams.
func (l *Loan) TotalNetWeight() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l.GoldItems {
		total = total.Add(item.NetWeight)
	}
	return total
}
