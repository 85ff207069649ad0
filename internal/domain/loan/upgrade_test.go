package loan

import (
	"testing"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeInterestRate_ClimbsOneRung(t *testing.T) {
	l := newTestLoan(t)

	events, err := l.UpgradeInterestRate("payment overdue", date(2024, 4, 2))

	require.NoError(t, err)
	assert.Equal(t, 24.0, l.CurrentInterestRate)
	assert.Equal(t, 18.0, l.OriginalInterestRate)
	assert.Equal(t, 1, l.CurrentUpgradeLevel)

	// The whole life is re-rated at 24% over six months from disbursement:
	// 182 days of interest on 50000 is 5984.
	assert.Equal(t, "55984", l.TotalPayment.String())
	assert.Equal(t, "55984", l.RemainingBalance.String())

	require.Len(t, l.UpgradeHistory, 1)
	assert.Equal(t, 18.0, l.UpgradeHistory[0].FromRate)
	assert.Equal(t, 24.0, l.UpgradeHistory[0].ToRate)
	assert.Equal(t, date(2024, 7, 1), l.UpgradeHistory[0].NewTermEndDate)

	require.Len(t, events, 1)
	upgraded, ok := events[0].(RateUpgradedEvent)
	require.True(t, ok)
	assert.Equal(t, 24.0, upgraded.ToRate)
	assert.Equal(t, 1, upgraded.ToLevel)
}

func TestUpgradeInterestRate_RebuildsScheduleFromNow(t *testing.T) {
	l := newTestLoan(t)

	now := date(2024, 4, 2)
	_, err := l.UpgradeInterestRate("payment overdue", now)

	require.NoError(t, err)
	// 90 days remain to the new 2024-07-01 horizon, billed as 3 months.
	require.Len(t, l.Installments, 3)
	assert.Equal(t, date(2024, 5, 2), l.Installments[0].DueDate)
	assert.Equal(t, "18661", l.Installments[0].Amount.String())
	for _, inst := range l.Installments {
		assert.Equal(t, InstallmentPending, inst.Status)
	}
}

func TestUpgradeInterestRate_NeverSkipsRungs(t *testing.T) {
	l := newTestLoan(t)

	_, err := l.UpgradeInterestRate("first", date(2024, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 24.0, l.CurrentInterestRate)

	_, err = l.UpgradeInterestRate("second", date(2024, 7, 2))
	require.NoError(t, err)
	assert.Equal(t, 30.0, l.CurrentInterestRate)
	assert.Equal(t, 2, l.CurrentUpgradeLevel)

	_, err = l.UpgradeInterestRate("third", date(2024, 10, 2))
	require.NoError(t, err)
	assert.Equal(t, 36.0, l.CurrentInterestRate)
	assert.Equal(t, 3, l.CurrentUpgradeLevel)

	_, err = l.UpgradeInterestRate("fourth", date(2025, 1, 2))
	assert.ErrorIs(t, err, apperrors.ErrNoFurtherUpgrades)
	assert.Equal(t, 36.0, l.CurrentInterestRate)
}

func TestUpgradeInterestRate_TopOriginalRateHasNoHeadroom(t *testing.T) {
	l, err := NewLoan("CUST-003", decimal.NewFromInt(50000), 3, 36, date(2024, 1, 1), testGoldItems(), date(2024, 1, 1))
	require.NoError(t, err)

	_, err = l.UpgradeInterestRate("overdue", date(2024, 4, 2))

	assert.ErrorIs(t, err, apperrors.ErrNoFurtherUpgrades)
}

func TestUpgradeInterestRate_RejectsRateOffTheLadder(t *testing.T) {
	l := newTestLoan(t)
	l.CurrentInterestRate = 25 // tampered rate no longer matches a rung

	_, err := l.UpgradeInterestRate("overdue", date(2024, 4, 2))

	assert.ErrorIs(t, err, apperrors.ErrNoFurtherUpgrades)
}

func TestUpgradeInterestRate_RejectsClosedLoan(t *testing.T) {
	l := newTestLoan(t)
	l.close(date(2024, 2, 1))

	_, err := l.UpgradeInterestRate("overdue", date(2024, 4, 2))

	assert.ErrorIs(t, err, apperrors.ErrLoanClosed)
}

func TestEligibleForAutoUpgrade(t *testing.T) {
	l := newTestLoan(t)

	assert.False(t, l.EligibleForAutoUpgrade(date(2024, 3, 1)), "inside the horizon")
	assert.True(t, l.EligibleForAutoUpgrade(date(2024, 4, 2)), "past the three-month horizon")

	l.CurrentUpgradeLevel = MaxAutoUpgradeLevel
	l.CurrentInterestRate = 30
	assert.False(t, l.EligibleForAutoUpgrade(date(2025, 1, 1)), "automated cap reached")
}

func TestEligibleForAuctionMarking(t *testing.T) {
	l := newTestLoan(t)

	assert.False(t, l.EligibleForAuctionMarking(date(2025, 1, 1)), "below the automated cap")

	l.CurrentUpgradeLevel = MaxAutoUpgradeLevel
	l.CurrentInterestRate = 30
	assert.False(t, l.EligibleForAuctionMarking(date(2024, 5, 1)), "inside the level-2 horizon")
	assert.True(t, l.EligibleForAuctionMarking(date(2024, 10, 2)), "past the level-2 horizon")

	l.AuctionStatus = AuctionReady
	assert.False(t, l.EligibleForAuctionMarking(date(2024, 10, 2)), "already in the auction pipeline")
}

func TestCurrentTermEndDate(t *testing.T) {
	l := newTestLoan(t)
	assert.Equal(t, date(2024, 4, 1), l.CurrentTermEndDate())

	l.CurrentUpgradeLevel = 2
	assert.Equal(t, date(2024, 10, 1), l.CurrentTermEndDate())
}
