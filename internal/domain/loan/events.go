package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a domain fact produced by a state transition. The orchestrator
// persists the aggregate first and dispatches events afterwards; a dispatch
// failure never rolls the transition back.
type Event interface {
	EventType() string
}

type PaymentRecordedEvent struct {
	LoanID            string          `json:"loanId"`
	CustomerID        string          `json:"customerId"`
	PaymentID         string          `json:"paymentId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	InstallmentNumber int             `json:"installmentNumber"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	Timestamp         time.Time       `json:"timestamp"`
}

func (PaymentRecordedEvent) EventType() string { return "payment.recorded" }

type LoanClosedEvent struct {
	LoanID           string           `json:"loanId"`
	CustomerID       string           `json:"customerId"`
	ClosedDate       time.Time        `json:"closedDate"`
	TotalPaid        decimal.Decimal  `json:"totalPaid"`
	GoldReturnStatus GoldReturnStatus `json:"goldReturnStatus"`
}

func (LoanClosedEvent) EventType() string { return "loan.closed" }

type RateUpgradedEvent struct {
	LoanID          string          `json:"loanId"`
	CustomerID      string          `json:"customerId"`
	FromRate        float64         `json:"fromRate"`
	ToRate          float64         `json:"toRate"`
	FromLevel       int             `json:"fromLevel"`
	ToLevel         int             `json:"toLevel"`
	OldTotalPayment decimal.Decimal `json:"oldTotalPayment"`
	NewTotalPayment decimal.Decimal `json:"newTotalPayment"`
	NewTermEndDate  time.Time       `json:"newTermEndDate"`
	Reason          string          `json:"reason"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (RateUpgradedEvent) EventType() string { return "loan.rate_upgraded" }

type GoldReturnReminderDueEvent struct {
	LoanID       string       `json:"loanId"`
	CustomerID   string       `json:"customerId"`
	ReminderType ReminderType `json:"reminderType"`
	SentTo       string       `json:"sentTo"`
	Message      string       `json:"message"`
	Timestamp    time.Time    `json:"timestamp"`
}

func (GoldReturnReminderDueEvent) EventType() string { return "gold_return.reminder_due" }

type GoldReturnStatusChangedEvent struct {
	LoanID     string           `json:"loanId"`
	CustomerID string           `json:"customerId"`
	OldStatus  GoldReturnStatus `json:"oldStatus"`
	NewStatus  GoldReturnStatus `json:"newStatus"`
	Timestamp  time.Time        `json:"timestamp"`
}

func (GoldReturnStatusChangedEvent) EventType() string { return "gold_return.status_changed" }

type AuctionStateChangedEvent struct {
	LoanID     string        `json:"loanId"`
	CustomerID string        `json:"customerId"`
	OldStatus  AuctionStatus `json:"oldStatus"`
	NewStatus  AuctionStatus `json:"newStatus"`
	Actor      string        `json:"actor"`
	Message    string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
}

func (AuctionStateChangedEvent) EventType() string { return "auction.state_changed" }
