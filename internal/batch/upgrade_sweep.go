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

const upgradeReasonOverdue = "overdue_upgrade"

// RateUpgradeSweep escalates the interest rate of active loans that carry an
// outstanding balance past their current contractual horizon, and flags
// loans at the top of the automated ladder for collateral auction. Each
// per-loan call goes through the same LoanService serialization path as a
// live user request.
type RateUpgradeSweep struct {
	loanRepo    loan.Repository
	loanService loan.LoanService
	clock       loan.Clock
	logger      *slog.Logger
}

func NewRateUpgradeSweep(loanRepo loan.Repository, loanSvc loan.LoanService, clock loan.Clock, logger *slog.Logger) *RateUpgradeSweep {
	if loanRepo == nil || loanSvc == nil || clock == nil || logger == nil {
		panic("RateUpgradeSweep dependencies cannot be nil")
	}
	return &RateUpgradeSweep{
		loanRepo:    loanRepo,
		loanService: loanSvc,
		clock:       clock,
		logger:      logger.With("job", "RateUpgradeSweep"),
	}
}

func (j *RateUpgradeSweep) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting rate upgrade sweep.")

	activeLoanIDs, err := j.loanRepo.GetActiveLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting sweep.", slog.Any("error", err))
		return fmt.Errorf("cannot run sweep, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(activeLoanIDs)))

	if len(activeLoanIDs) == 0 {
		j.logger.InfoContext(ctx, "No active loans found to process.")
		return nil
	}

	var wg sync.WaitGroup
	var upgradedCount, auctionFlaggedCount, errorCount int32

	for _, loanID := range activeLoanIDs {
		wg.Add(1)
		go func(currentLoanID string) {
			defer wg.Done()

			logCtx := j.logger.With(slog.String("loanID", currentLoanID))
			now := j.clock.Now()

			l, err := j.loanService.GetLoan(ctx, currentLoanID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "Loan not found during sweep", slog.Any("error", err))
				} else {
					logCtx.ErrorContext(ctx, "Failed to load loan during sweep", slog.Any("error", err))
					atomic.AddInt32(&errorCount, 1)
				}
				return
			}

			switch {
			case l.EligibleForAutoUpgrade(now):
				logCtx.InfoContext(ctx, "Loan past contractual horizon, upgrading rate.",
					slog.Int("currentLevel", l.CurrentUpgradeLevel))
				if _, err := j.loanService.UpgradeInterestRate(ctx, currentLoanID, upgradeReasonOverdue); err != nil {
					if apperrors.IsGuardViolation(err) {
						logCtx.WarnContext(ctx, "Upgrade rejected by guard", slog.Any("error", err))
					} else {
						logCtx.ErrorContext(ctx, "Failed to upgrade interest rate", slog.Any("error", err))
						atomic.AddInt32(&errorCount, 1)
					}
					return
				}
				atomic.AddInt32(&upgradedCount, 1)

			case l.EligibleForAuctionMarking(now):
				logCtx.InfoContext(ctx, "Loan at top automated tier and unpaid, marking ready for auction.")
				notes := fmt.Sprintf("Outstanding balance %s past final horizon.", l.RemainingBalance.StringFixed(0))
				if err := j.loanService.MarkReadyForAuction(ctx, currentLoanID, notes, "system"); err != nil {
					if apperrors.IsGuardViolation(err) {
						logCtx.WarnContext(ctx, "Auction marking rejected by guard", slog.Any("error", err))
					} else {
						logCtx.ErrorContext(ctx, "Failed to mark loan ready for auction", slog.Any("error", err))
						atomic.AddInt32(&errorCount, 1)
					}
					return
				}
				atomic.AddInt32(&auctionFlaggedCount, 1)

			default:
				logCtx.DebugContext(ctx, "Loan not eligible for escalation.")
			}
		}(loanID)
	}

	wg.Wait()
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", len(activeLoanIDs)),
		slog.Int("loans_upgraded", int(upgradedCount)),
		slog.Int("loans_flagged_for_auction", int(auctionFlaggedCount)),
		slog.Int("errors_encountered", int(errorCount)),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Rate upgrade sweep finished with errors.")
		return fmt.Errorf("sweep completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Rate upgrade sweep finished successfully.")
	return nil
}
