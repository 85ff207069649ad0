package loan

import (
	"fmt"
	"time"

	"goldloan-engine/internal/pkg/apperrors"
)

// goldReturnOverdueDays is how long after closure the collateral may sit
// unreturned before the sweep marks it overdue.
const goldReturnOverdueDays = 30

// ScheduleGoldReturn books a collateral handover date. Only meaningful once
// the loan is closed.
func (l *Loan) ScheduleGoldReturn(date time.Time, notes string, now time.Time) ([]Event, error) {
	if l.Status != StatusClosed {
		return nil, fmt.Errorf("%w: cannot schedule gold return on loan %s", apperrors.ErrLoanNotClosed, l.ID)
	}
	if date.IsZero() {
		return nil, apperrors.NewValidationError("date", "is required")
	}

	old := l.GoldReturnStatus
	scheduled := truncateToDay(date)
	l.GoldReturnScheduledDate = &scheduled
	l.GoldReturnStatus = GoldReturnScheduled
	if notes != "" {
		l.GoldReturnNotes = notes
	}
	l.UpdatedAt = now

	return []Event{GoldReturnStatusChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  old,
		NewStatus:  GoldReturnScheduled,
		Timestamp:  now,
	}}, nil
}

// MarkGoldReturned records the physical handover of the pledged gold.
func (l *Loan) MarkGoldReturned(returnedBy, notes string, now time.Time) ([]Event, error) {
	if l.Status != StatusClosed {
		return nil, fmt.Errorf("%w: cannot mark gold returned on loan %s", apperrors.ErrLoanNotClosed, l.ID)
	}
	if returnedBy == "" {
		return nil, apperrors.NewValidationError("returnedBy", "is required")
	}

	old := l.GoldReturnStatus
	returned := now
	l.GoldReturnDate = &returned
	l.GoldReturnStatus = GoldReturnReturned
	if notes != "" {
		l.GoldReturnNotes = notes
	}
	l.UpdatedAt = now

	return []Event{GoldReturnStatusChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  old,
		NewStatus:  GoldReturnReturned,
		Timestamp:  now,
	}}, nil
}

// AddGoldReturnReminder appends a reminder to the log without changing
// state. Callers keep reminders idempotent per type by consulting
// HasGoldReturnReminder before sending.
func (l *Loan) AddGoldReturnReminder(reminderType ReminderType, sentTo, message string, now time.Time) ([]Event, error) {
	if l.Status != StatusClosed {
		return nil, fmt.Errorf("%w: cannot add gold return reminder on loan %s", apperrors.ErrLoanNotClosed, l.ID)
	}
	if sentTo == "" {
		return nil, apperrors.NewValidationError("sentTo", "is required")
	}

	l.GoldReturnReminders = append(l.GoldReturnReminders, GoldReturnReminder{
		SentDate: now,
		Type:     reminderType,
		SentTo:   sentTo,
		Message:  message,
	})
	l.UpdatedAt = now

	return []Event{GoldReturnReminderDueEvent{
		LoanID:       l.ID,
		CustomerID:   l.CustomerID,
		ReminderType: reminderType,
		SentTo:       sentTo,
		Message:      message,
		Timestamp:    now,
	}}, nil
}

// HasGoldReturnReminder reports whether a reminder of the given type has
// already been logged.
func (l *Loan) HasGoldReturnReminder(reminderType ReminderType) bool {
	for _, r := range l.GoldReturnReminders {
		if r.Type == reminderType {
			return true
		}
	}
	return false
}

// InitializeGoldReturnStatus backfills the collateral handover state for
// loans closed before the lifecycle existed. No-op when a status is present.
func (l *Loan) InitializeGoldReturnStatus(now time.Time) error {
	if l.Status != StatusClosed {
		return fmt.Errorf("%w: cannot initialize gold return status on loan %s", apperrors.ErrLoanNotClosed, l.ID)
	}
	if l.GoldReturnStatus != "" {
		return nil
	}
	l.initGoldReturnStatus()
	l.UpdatedAt = now
	return nil
}

// GoldReturnOverdue reports whether the collateral has sat unreturned for
// more than 30 days since closure.
func (l *Loan) GoldReturnOverdue(now time.Time) bool {
	if l.Status != StatusClosed || l.ClosedDate == nil {
		return false
	}
	if l.GoldReturnStatus != GoldReturnPending && l.GoldReturnStatus != GoldReturnScheduled {
		return false
	}
	return wholeDaysBetween(*l.ClosedDate, now) > goldReturnOverdueDays
}

// MarkGoldReturnOverdue applies the time-triggered overdue edge. The sweep
// decides when to call it; the guard keeps it harmless elsewhere.
func (l *Loan) MarkGoldReturnOverdue(now time.Time) ([]Event, error) {
	if l.Status != StatusClosed {
		return nil, fmt.Errorf("%w: cannot mark gold return overdue on loan %s", apperrors.ErrLoanNotClosed, l.ID)
	}
	if !l.GoldReturnOverdue(now) {
		return nil, nil
	}

	old := l.GoldReturnStatus
	l.GoldReturnStatus = GoldReturnOverdue
	l.UpdatedAt = now

	return []Event{GoldReturnStatusChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  old,
		NewStatus:  GoldReturnOverdue,
		Timestamp:  now,
	}}, nil
}
