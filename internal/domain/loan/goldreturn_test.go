package loan

import (
	"testing"

	"goldloan-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClosedLoan(t *testing.T) *Loan {
	t.Helper()
	l := newTestLoan(t)
	l.close(date(2024, 1, 15))
	return l
}

func TestScheduleGoldReturn(t *testing.T) {
	l := newClosedLoan(t)

	events, err := l.ScheduleGoldReturn(date(2024, 1, 20), "customer picks up Saturday", date(2024, 1, 16))

	require.NoError(t, err)
	assert.Equal(t, GoldReturnScheduled, l.GoldReturnStatus)
	require.NotNil(t, l.GoldReturnScheduledDate)
	assert.Equal(t, date(2024, 1, 20), *l.GoldReturnScheduledDate)
	assert.Equal(t, "customer picks up Saturday", l.GoldReturnNotes)

	require.Len(t, events, 1)
	changed, ok := events[0].(GoldReturnStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, GoldReturnPending, changed.OldStatus)
	assert.Equal(t, GoldReturnScheduled, changed.NewStatus)
}

func TestScheduleGoldReturn_RejectsOpenLoan(t *testing.T) {
	l := newTestLoan(t)

	_, err := l.ScheduleGoldReturn(date(2024, 1, 20), "", date(2024, 1, 16))

	assert.ErrorIs(t, err, apperrors.ErrLoanNotClosed)
}

func TestMarkGoldReturned(t *testing.T) {
	l := newClosedLoan(t)

	events, err := l.MarkGoldReturned("branch-manager", "all items verified", date(2024, 1, 22))

	require.NoError(t, err)
	assert.Equal(t, GoldReturnReturned, l.GoldReturnStatus)
	require.NotNil(t, l.GoldReturnDate)
	assert.Equal(t, date(2024, 1, 22), *l.GoldReturnDate)
	require.Len(t, events, 1)
}

func TestMarkGoldReturned_RequiresActor(t *testing.T) {
	l := newClosedLoan(t)

	_, err := l.MarkGoldReturned("", "", date(2024, 1, 22))

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAddGoldReturnReminder(t *testing.T) {
	l := newClosedLoan(t)

	events, err := l.AddGoldReturnReminder(ReminderInitial, "CUST-001", "Please collect your gold.", date(2024, 1, 23))

	require.NoError(t, err)
	require.Len(t, l.GoldReturnReminders, 1)
	assert.True(t, l.HasGoldReturnReminder(ReminderInitial))
	assert.False(t, l.HasGoldReturnReminder(ReminderUrgent))

	require.Len(t, events, 1)
	due, ok := events[0].(GoldReturnReminderDueEvent)
	require.True(t, ok)
	assert.Equal(t, ReminderInitial, due.ReminderType)
}

func TestInitializeGoldReturnStatus_BackfillsOnlyWhenMissing(t *testing.T) {
	l := newClosedLoan(t)
	l.GoldReturnStatus = ""

	require.NoError(t, l.InitializeGoldReturnStatus(date(2024, 1, 23)))
	assert.Equal(t, GoldReturnPending, l.GoldReturnStatus)

	l.GoldReturnStatus = GoldReturnScheduled
	require.NoError(t, l.InitializeGoldReturnStatus(date(2024, 1, 24)))
	assert.Equal(t, GoldReturnScheduled, l.GoldReturnStatus, "existing status is never overwritten")
}

func TestGoldReturnOverdue(t *testing.T) {
	l := newClosedLoan(t)

	assert.False(t, l.GoldReturnOverdue(date(2024, 2, 14)), "exactly 30 days is not overdue")
	assert.True(t, l.GoldReturnOverdue(date(2024, 2, 15)), "31 days is overdue")

	l.GoldReturnStatus = GoldReturnReturned
	assert.False(t, l.GoldReturnOverdue(date(2024, 3, 1)), "returned collateral cannot be overdue")
}

func TestMarkGoldReturnOverdue(t *testing.T) {
	l := newClosedLoan(t)

	// Before the threshold the transition is a silent no-op.
	events, err := l.MarkGoldReturnOverdue(date(2024, 2, 1))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, GoldReturnPending, l.GoldReturnStatus)

	events, err = l.MarkGoldReturnOverdue(date(2024, 2, 20))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, GoldReturnOverdue, l.GoldReturnStatus)
}

func TestMarkGoldReturnOverdue_RejectsOpenLoan(t *testing.T) {
	l := newTestLoan(t)

	_, err := l.MarkGoldReturnOverdue(date(2024, 3, 1))

	assert.ErrorIs(t, err, apperrors.ErrLoanNotClosed)
}
