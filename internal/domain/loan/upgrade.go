package loan

import (
	"fmt"
	"time"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// rateLadder is the fixed delinquency escalation ladder in annual percent.
// A loan's rung sequence starts at its original rate's position; upgrades
// advance exactly one rung at a time and never skip.
var rateLadder = []float64{18, 24, 30, 36}

// MaxAutoUpgradeLevel caps the automated sweep. The top rung is reachable
// only through an explicit administrative call.
const MaxAutoUpgradeLevel = 2

// upgradeHorizonMonths is the size of the contractual extension block added
// per escalation, measured from the original disbursement date.
const upgradeHorizonMonths = 3

func ladderIndex(rate float64) int {
	for i, r := range rateLadder {
		if r == rate {
			return i
		}
	}
	return -1
}

// nextRung resolves the next (rate, level) pair strictly from the current
// one. A mismatch between the stored rate and the expected rung rejects the
// upgrade rather than risking a skipped level.
func nextRung(originalRate float64, currentRate float64, currentLevel int) (float64, int, error) {
	base := ladderIndex(originalRate)
	if base < 0 {
		return 0, 0, fmt.Errorf("%w: rate %.2f is not on the ladder", apperrors.ErrNoFurtherUpgrades, originalRate)
	}
	expected := base + currentLevel
	if expected >= len(rateLadder) || rateLadder[expected] != currentRate {
		return 0, 0, fmt.Errorf("%w: level %d with rate %.2f does not match an expected rung",
			apperrors.ErrNoFurtherUpgrades, currentLevel, currentRate)
	}
	next := expected + 1
	if next >= len(rateLadder) {
		return 0, 0, fmt.Errorf("%w: already at top rate %.2f", apperrors.ErrNoFurtherUpgrades, currentRate)
	}
	return rateLadder[next], currentLevel + 1, nil
}

// CurrentTermEndDate is the contractual horizon for the loan's current
// escalation level, measured from the original disbursement date.
func (l *Loan) CurrentTermEndDate() time.Time {
	return l.DisbursementDate.AddDate(0, upgradeHorizonMonths*(l.CurrentUpgradeLevel+1), 0)
}

// EligibleForAutoUpgrade reports whether the automated delinquency sweep may
// escalate this loan: an outstanding balance past the current horizon, below
// the automated level cap.
func (l *Loan) EligibleForAutoUpgrade(now time.Time) bool {
	return l.Status == StatusActive &&
		l.RemainingBalance.IsPositive() &&
		l.CurrentUpgradeLevel < MaxAutoUpgradeLevel &&
		now.After(l.CurrentTermEndDate())
}

// EligibleForAuctionMarking reports whether the sweep should flag the loan
// ready for collateral liquidation: top of the automated ladder, past the
// horizon, still unpaid, not already in the auction pipeline.
func (l *Loan) EligibleForAuctionMarking(now time.Time) bool {
	return l.Status == StatusActive &&
		l.RemainingBalance.IsPositive() &&
		l.CurrentUpgradeLevel >= MaxAutoUpgradeLevel &&
		l.AuctionStatus == AuctionNotReady &&
		now.After(l.CurrentTermEndDate())
}

// UpgradeInterestRate escalates the rate one rung, re-rates the entire loan
// life from the original disbursement date at the new rate, and rebuilds the
// remaining installment schedule from now.
func (l *Loan) UpgradeInterestRate(reason string, now time.Time) ([]Event, error) {
	if l.Status == StatusClosed {
		return nil, fmt.Errorf("%w: cannot upgrade interest rate on loan %s", apperrors.ErrLoanClosed, l.ID)
	}
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required")
	}

	newRate, newLevel, err := nextRung(l.OriginalInterestRate, l.CurrentInterestRate, l.CurrentUpgradeLevel)
	if err != nil {
		return nil, err
	}

	newTermEnd := l.DisbursementDate.AddDate(0, upgradeHorizonMonths*(newLevel+1), 0)
	breakdown, err := ComputeInterest(l.Principal, newRate, l.DisbursementDate, newTermEnd)
	if err != nil {
		return nil, err
	}

	oldRate := l.CurrentInterestRate
	oldLevel := l.CurrentUpgradeLevel
	oldTotal := l.TotalPayment

	l.TotalPayment = breakdown.TotalAmount
	l.recalcRemainingBalance()

	monthsRemaining := (wholeDaysBetween(now, newTermEnd) + 29) / 30
	if monthsRemaining < 1 {
		monthsRemaining = 1
	}
	monthlyPayment := RoundMoney(l.RemainingBalance.Div(decimal.NewFromInt(int64(monthsRemaining))))

	schedule, err := BuildSchedule(now, monthsRemaining, monthlyPayment)
	if err != nil {
		return nil, err
	}
	l.Installments = schedule

	l.CurrentInterestRate = newRate
	l.CurrentUpgradeLevel = newLevel
	l.UpgradeHistory = append(l.UpgradeHistory, RateUpgrade{
		FromRate:       oldRate,
		ToRate:         newRate,
		UpgradeDate:    now,
		Reason:         reason,
		NewTermEndDate: newTermEnd,
	})
	l.UpdatedAt = now

	return []Event{RateUpgradedEvent{
		LoanID:          l.ID,
		CustomerID:      l.CustomerID,
		FromRate:        oldRate,
		ToRate:          newRate,
		FromLevel:       oldLevel,
		ToLevel:         newLevel,
		OldTotalPayment: oldTotal,
		NewTotalPayment: l.TotalPayment,
		NewTermEndDate:  newTermEnd,
		Reason:          reason,
		Timestamp:       now,
	}}, nil
}
