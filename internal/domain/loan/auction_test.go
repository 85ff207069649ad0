package loan

import (
	"testing"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkReadyForAuction(t *testing.T) {
	l := newTestLoan(t)

	events, err := l.MarkReadyForAuction("90 days overdue", "system", date(2024, 10, 2))

	require.NoError(t, err)
	assert.Equal(t, AuctionReady, l.AuctionStatus)
	require.NotNil(t, l.AuctionReadyDate)
	require.Len(t, l.AuctionNotifications, 1)
	assert.Equal(t, "ready_for_auction", l.AuctionNotifications[0].Type)
	assert.Equal(t, "system", l.AuctionNotifications[0].Actor)

	require.Len(t, events, 1)
	changed, ok := events[0].(AuctionStateChangedEvent)
	require.True(t, ok)
	assert.Equal(t, AuctionNotReady, changed.OldStatus)
	assert.Equal(t, AuctionReady, changed.NewStatus)
}

func TestMarkReadyForAuction_RejectsClosedLoan(t *testing.T) {
	l := newTestLoan(t)
	l.close(date(2024, 2, 1))

	_, err := l.MarkReadyForAuction("", "admin", date(2024, 10, 2))

	assert.ErrorIs(t, err, apperrors.ErrLoanClosed)
}

func TestScheduleAuction_OnlyFromReady(t *testing.T) {
	l := newTestLoan(t)

	_, err := l.ScheduleAuction(date(2024, 11, 1), "", "admin", date(2024, 10, 2))
	assert.ErrorIs(t, err, apperrors.ErrNotReadyForAuction)

	_, err = l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)

	events, err := l.ScheduleAuction(date(2024, 11, 1), "city auction house", "admin", date(2024, 10, 3))
	require.NoError(t, err)
	assert.Equal(t, AuctionScheduled, l.AuctionStatus)
	require.NotNil(t, l.AuctionScheduledDate)
	assert.Equal(t, date(2024, 11, 1), *l.AuctionScheduledDate)
	require.Len(t, events, 1)
}

func TestMarkAsAuctioned_ForcesClosure(t *testing.T) {
	l := newTestLoan(t)
	_, err := l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)
	_, err = l.ScheduleAuction(date(2024, 11, 1), "", "admin", date(2024, 10, 3))
	require.NoError(t, err)

	events, err := l.MarkAsAuctioned(date(2024, 11, 1), "sold above reserve", "admin", date(2024, 11, 1))

	require.NoError(t, err)
	assert.Equal(t, Auctioned, l.AuctionStatus)
	assert.Equal(t, StatusClosed, l.Status)
	require.NotNil(t, l.ClosedDate)
	assert.Equal(t, date(2024, 11, 1), *l.ClosedDate)
	require.NotNil(t, l.AuctionDate)
	require.Len(t, events, 1)
}

func TestMarkAsAuctioned_AllowedStraightFromReady(t *testing.T) {
	l := newTestLoan(t)
	_, err := l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)

	_, err = l.MarkAsAuctioned(date(2024, 11, 1), "", "admin", date(2024, 11, 1))

	require.NoError(t, err)
	assert.Equal(t, Auctioned, l.AuctionStatus)
}

func TestMarkAsAuctioned_RejectedWhenNotInPipeline(t *testing.T) {
	l := newTestLoan(t)

	_, err := l.MarkAsAuctioned(date(2024, 11, 1), "", "admin", date(2024, 11, 1))

	assert.ErrorIs(t, err, apperrors.ErrNotReadyForAuction)
}

func TestCancelAuction(t *testing.T) {
	l := newTestLoan(t)
	_, err := l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)

	events, err := l.CancelAuction("customer negotiated a settlement", "admin", date(2024, 10, 5))

	require.NoError(t, err)
	assert.Equal(t, AuctionCancelled, l.AuctionStatus)
	require.Len(t, events, 1)
}

func TestCancelAuction_RejectedAfterAuction(t *testing.T) {
	l := newTestLoan(t)
	_, err := l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)
	_, err = l.MarkAsAuctioned(date(2024, 11, 1), "", "admin", date(2024, 11, 1))
	require.NoError(t, err)

	_, err = l.CancelAuction("", "admin", date(2024, 11, 2))

	assert.ErrorIs(t, err, apperrors.ErrAlreadyAuctioned)
}

func TestMarkReadyForAuction_RejectedAfterAuction(t *testing.T) {
	l := newTestLoan(t)
	_, err := l.MarkReadyForAuction("overdue", "system", date(2024, 10, 2))
	require.NoError(t, err)
	_, err = l.MarkAsAuctioned(date(2024, 11, 1), "", "admin", date(2024, 11, 1))
	require.NoError(t, err)

	_, err = l.MarkReadyForAuction("", "admin", date(2024, 11, 2))

	// A loan closed by auction fails the closed-loan guard first.
	assert.True(t, apperrors.IsGuardViolation(err))
}
