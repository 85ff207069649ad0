package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"goldloan-engine/internal/domain/loan"
	"goldloan-engine/internal/pkg/apperrors"
)

// reminderRung maps days-since-closure to the reminder type due at that age.
type reminderRung struct {
	afterDays int
	kind      loan.ReminderType
	message   string
}

var reminderLadder = []reminderRung{
	{7, loan.ReminderInitial, "Your loan is settled. Please collect your pledged gold at your earliest convenience."},
	{14, loan.ReminderFollowup, "Reminder: your pledged gold is still awaiting collection."},
	{21, loan.ReminderUrgent, "Urgent: please collect your pledged gold within the next week."},
	{30, loan.ReminderFinal, "Final notice: uncollected gold will be flagged as overdue."},
}

// GoldReturnSweep walks closed loans whose collateral has not been handed
// back, sends the reminder ladder (at most one reminder of each type per
// loan, enforced by checking the reminder log before sending), and marks
// returns overdue past 30 days.
type GoldReturnSweep struct {
	loanRepo    loan.Repository
	loanService loan.LoanService
	clock       loan.Clock
	logger      *slog.Logger
}

func NewGoldReturnSweep(loanRepo loan.Repository, loanSvc loan.LoanService, clock loan.Clock, logger *slog.Logger) *GoldReturnSweep {
	if loanRepo == nil || loanSvc == nil || clock == nil || logger == nil {
		panic("GoldReturnSweep dependencies cannot be nil")
	}
	return &GoldReturnSweep{
		loanRepo:    loanRepo,
		loanService: loanSvc,
		clock:       clock,
		logger:      logger.With("job", "GoldReturnSweep"),
	}
}

func (j *GoldReturnSweep) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting gold return sweep.")

	loanIDs, err := j.loanRepo.GetClosedLoanIDsAwaitingGoldReturn(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get loans awaiting gold return, aborting sweep.", slog.Any("error", err))
		return fmt.Errorf("cannot run sweep, failed to get candidate loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched loans awaiting gold return.", slog.Int("count", len(loanIDs)))

	var wg sync.WaitGroup
	var remindersSent, overdueMarked, errorCount int32

	for _, loanID := range loanIDs {
		wg.Add(1)
		go func(currentLoanID string) {
			defer wg.Done()

			logCtx := j.logger.With(slog.String("loanID", currentLoanID))

			sent, overdue, err := j.processLoan(ctx, currentLoanID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "Loan not found during sweep", slog.Any("error", err))
				} else {
					logCtx.ErrorContext(ctx, "Failed to process loan during gold return sweep", slog.Any("error", err))
					atomic.AddInt32(&errorCount, 1)
				}
				return
			}
			atomic.AddInt32(&remindersSent, int32(sent))
			if overdue {
				atomic.AddInt32(&overdueMarked, 1)
			}
		}(loanID)
	}

	wg.Wait()
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("loans_checked", len(loanIDs)),
		slog.Int("reminders_sent", int(remindersSent)),
		slog.Int("marked_overdue", int(overdueMarked)),
		slog.Int("errors_encountered", int(errorCount)),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Gold return sweep finished with errors.")
		return fmt.Errorf("sweep completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Gold return sweep finished successfully.")
	return nil
}

func (j *GoldReturnSweep) processLoan(ctx context.Context, loanID string) (remindersSent int, markedOverdue bool, err error) {
	l, err := j.loanService.GetLoan(ctx, loanID)
	if err != nil {
		return 0, false, err
	}
	if l.ClosedDate == nil {
		return 0, false, nil
	}
	if l.GoldReturnStatus == loan.GoldReturnReturned {
		return 0, false, nil
	}

	now := j.clock.Now()
	daysSinceClosure := int(now.Sub(*l.ClosedDate).Hours() / 24)

	for _, rung := range reminderLadder {
		if daysSinceClosure < rung.afterDays {
			break
		}
		if l.HasGoldReturnReminder(rung.kind) {
			continue
		}
		if err := j.loanService.AddGoldReturnReminder(ctx, loanID, rung.kind, l.CustomerID, rung.message); err != nil {
			return remindersSent, false, err
		}
		remindersSent++
	}

	if l.GoldReturnOverdue(now) {
		if err := j.loanService.MarkGoldReturnOverdue(ctx, loanID); err != nil {
			return remindersSent, false, err
		}
		markedOverdue = true
	}

	return remindersSent, markedOverdue, nil
}
