package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"goldloan-engine/internal/infrastructure/monitoring"
	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// EventPublisher dispatches domain events after the aggregate has been
// persisted. Publish failures are logged, never propagated: a notification
// problem must not be mistaken for a financial-mutation failure.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// maxConflictRetries bounds the transparent reload-and-retry on optimistic
// concurrency conflicts before the error surfaces to the caller.
const maxConflictRetries = 3

type OriginateLoanInput struct {
	CustomerID       string
	Principal        decimal.Decimal
	TermMonths       int
	InterestRate     float64
	DisbursementDate time.Time
	GoldItems        []GoldItem
}

type LoanService interface {
	OriginateLoan(ctx context.Context, in OriginateLoanInput) (*Loan, error)

	GetLoan(ctx context.Context, loanID string) (*Loan, error)

	CalculateEarlyRepayment(ctx context.Context, loanID string) (*EarlyRepayment, error)

	RecordPayment(ctx context.Context, loanID string, in RecordPaymentInput) (*Payment, error)

	ApprovePayment(ctx context.Context, loanID, paymentID string) error

	UpgradeInterestRate(ctx context.Context, loanID, reason string) (*Loan, error)

	ScheduleGoldReturn(ctx context.Context, loanID string, date time.Time, notes string) error

	MarkGoldReturned(ctx context.Context, loanID, returnedBy, notes string) error

	AddGoldReturnReminder(ctx context.Context, loanID string, reminderType ReminderType, sentTo, message string) error

	InitializeGoldReturnStatus(ctx context.Context, loanID string) error

	MarkGoldReturnOverdue(ctx context.Context, loanID string) error

	MarkReadyForAuction(ctx context.Context, loanID, notes, by string) error

	ScheduleAuction(ctx context.Context, loanID string, date time.Time, notes, by string) error

	MarkAsAuctioned(ctx context.Context, loanID string, date time.Time, notes, by string) error

	CancelAuction(ctx context.Context, loanID, notes, by string) error
}

type loanServiceImpl struct {
	repo      Repository
	publisher EventPublisher
	clock     Clock
	calendar  HolidayCalendar
	logger    *slog.Logger
}

func NewLoanService(repo Repository, publisher EventPublisher, clock Clock, calendar HolidayCalendar, logger *slog.Logger) LoanService {
	if repo == nil || publisher == nil || clock == nil || calendar == nil || logger == nil {
		panic("LoanService dependencies cannot be nil")
	}
	return &loanServiceImpl{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		calendar:  calendar,
		logger:    logger.With("component", "LoanService"),
	}
}

func (s *loanServiceImpl) OriginateLoan(ctx context.Context, in OriginateLoanInput) (*Loan, error) {
	s.logger.InfoContext(ctx, "Originating loan", "customerID", in.CustomerID, "principal", in.Principal)

	l, err := NewLoan(in.CustomerID, in.Principal, in.TermMonths, in.InterestRate, in.DisbursementDate, in.GoldItems, s.clock.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to originate loan", "error", err)
		return nil, err
	}

	if err := s.repo.CreateLoan(ctx, l); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save originated loan", "loanID", l.ID, "error", err)
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	monitoring.RecordLoanOriginated()
	s.logger.InfoContext(ctx, "Loan originated", "loanID", l.ID, "totalPayment", l.TotalPayment)
	return l, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID string) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, "error", err)
		return nil, err
	}
	return l, nil
}

// CalculateEarlyRepayment is the read-only settlement preview: it never
// mutates the aggregate.
func (s *loanServiceImpl) CalculateEarlyRepayment(ctx context.Context, loanID string) (*EarlyRepayment, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	result, err := ComputeEarlyRepayment(l, s.clock.Now(), s.calendar)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// mutate runs a transition under the serialization discipline: load a fresh
// snapshot, apply fn, save with the version check, and on a conflict reload
// and redo the whole operation a bounded number of times. Events are
// published only after a successful save.
func (s *loanServiceImpl) mutate(ctx context.Context, loanID string, fn func(l *Loan) ([]Event, error)) (*Loan, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		l, err := s.GetLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}

		events, err := fn(l)
		if err != nil {
			return nil, err
		}

		if err := s.repo.UpdateLoan(ctx, l); err != nil {
			if errors.Is(err, apperrors.ErrVersionConflict) {
				s.logger.WarnContext(ctx, "Version conflict, retrying operation", "loanID", loanID, "attempt", attempt+1)
				lastErr = err
				continue
			}
			s.logger.ErrorContext(ctx, "Failed to save loan", "loanID", loanID, "error", err)
			return nil, err
		}

		s.dispatch(ctx, events)
		return l, nil
	}
	return nil, fmt.Errorf("operation on loan %s failed after %d attempts: %w", loanID, maxConflictRetries, lastErr)
}

func (s *loanServiceImpl) dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		// The mutation is already durable; notification delivery is the
		// dispatcher's problem, not the ledger's.
		s.logger.ErrorContext(ctx, "Failed to publish domain events", "count", len(events), "error", err)
	}
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, loanID string, in RecordPaymentInput) (*Payment, error) {
	s.logger.InfoContext(ctx, "Recording payment", "loanID", loanID, "amount", in.Amount, "method", in.Method)

	var payment *Payment
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		p, events, err := l.RecordPayment(in, s.clock.Now(), s.calendar)
		if err != nil {
			return nil, err
		}
		payment = p
		return events, nil
	})
	if err != nil {
		monitoring.RecordPayment("failure")
		return nil, err
	}

	monitoring.RecordPayment("success")
	if l.Status == StatusClosed {
		s.logger.InfoContext(ctx, "Loan closed by payment", "loanID", loanID, "totalPaid", l.TotalPaid)
	}
	return payment, nil
}

func (s *loanServiceImpl) ApprovePayment(ctx context.Context, loanID, paymentID string) error {
	s.logger.InfoContext(ctx, "Approving payment", "loanID", loanID, "paymentID", paymentID)
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return nil, l.ApprovePayment(paymentID, s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) UpgradeInterestRate(ctx context.Context, loanID, reason string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Upgrading interest rate", "loanID", loanID, "reason", reason)
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.UpgradeInterestRate(reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	monitoring.RecordRateUpgrade(l.CurrentUpgradeLevel)
	s.logger.InfoContext(ctx, "Interest rate upgraded", "loanID", loanID, "newRate", l.CurrentInterestRate, "newLevel", l.CurrentUpgradeLevel)
	return l, nil
}

func (s *loanServiceImpl) ScheduleGoldReturn(ctx context.Context, loanID string, date time.Time, notes string) error {
	s.logger.InfoContext(ctx, "Scheduling gold return", "loanID", loanID, "date", date)
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.ScheduleGoldReturn(date, notes, s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) MarkGoldReturned(ctx context.Context, loanID, returnedBy, notes string) error {
	s.logger.InfoContext(ctx, "Marking gold returned", "loanID", loanID, "returnedBy", returnedBy)
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.MarkGoldReturned(returnedBy, notes, s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) AddGoldReturnReminder(ctx context.Context, loanID string, reminderType ReminderType, sentTo, message string) error {
	s.logger.InfoContext(ctx, "Adding gold return reminder", "loanID", loanID, "type", reminderType)
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.AddGoldReturnReminder(reminderType, sentTo, message, s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) InitializeGoldReturnStatus(ctx context.Context, loanID string) error {
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return nil, l.InitializeGoldReturnStatus(s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) MarkGoldReturnOverdue(ctx context.Context, loanID string) error {
	_, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.MarkGoldReturnOverdue(s.clock.Now())
	})
	return err
}

func (s *loanServiceImpl) MarkReadyForAuction(ctx context.Context, loanID, notes, by string) error {
	s.logger.InfoContext(ctx, "Marking loan ready for auction", "loanID", loanID, "by", by)
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.MarkReadyForAuction(notes, by, s.clock.Now())
	})
	if err != nil {
		return err
	}
	monitoring.RecordAuctionTransition(string(l.AuctionStatus))
	return nil
}

func (s *loanServiceImpl) ScheduleAuction(ctx context.Context, loanID string, date time.Time, notes, by string) error {
	s.logger.InfoContext(ctx, "Scheduling auction", "loanID", loanID, "date", date, "by", by)
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.ScheduleAuction(date, notes, by, s.clock.Now())
	})
	if err != nil {
		return err
	}
	monitoring.RecordAuctionTransition(string(l.AuctionStatus))
	return nil
}

func (s *loanServiceImpl) MarkAsAuctioned(ctx context.Context, loanID string, date time.Time, notes, by string) error {
	s.logger.InfoContext(ctx, "Marking loan as auctioned", "loanID", loanID, "date", date, "by", by)
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.MarkAsAuctioned(date, notes, by, s.clock.Now())
	})
	if err != nil {
		return err
	}
	monitoring.RecordAuctionTransition(string(l.AuctionStatus))
	s.logger.InfoContext(ctx, "Loan closed by auction", "loanID", loanID)
	return nil
}

func (s *loanServiceImpl) CancelAuction(ctx context.Context, loanID, notes, by string) error {
	s.logger.InfoContext(ctx, "Cancelling auction", "loanID", loanID, "by", by)
	l, err := s.mutate(ctx, loanID, func(l *Loan) ([]Event, error) {
		return l.CancelAuction(notes, by, s.clock.Now())
	})
	if err != nil {
		return err
	}
	monitoring.RecordAuctionTransition(string(l.AuctionStatus))
	return nil
}
