package loan

import (
	"fmt"
	"time"

	"goldloan-engine/internal/pkg/apperrors"
)

func (l *Loan) appendAuctionNotification(notificationType, actor, message string, now time.Time) {
	l.AuctionNotifications = append(l.AuctionNotifications, AuctionNotification{
		Date:    now,
		Type:    notificationType,
		Actor:   actor,
		Message: message,
	})
}

func (l *Loan) auctionStateChangedEvent(old AuctionStatus, actor, message string, now time.Time) Event {
	return AuctionStateChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  old,
		NewStatus:  l.AuctionStatus,
		Actor:      actor,
		Message:    message,
		Timestamp:  now,
	}
}

// MarkReadyForAuction flags a severely delinquent loan for collateral
// liquidation.
func (l *Loan) MarkReadyForAuction(notes, by string, now time.Time) ([]Event, error) {
	if l.Status == StatusClosed {
		return nil, fmt.Errorf("%w: cannot mark loan %s ready for auction", apperrors.ErrLoanClosed, l.ID)
	}
	if l.AuctionStatus == Auctioned {
		return nil, fmt.Errorf("%w: loan %s", apperrors.ErrAlreadyAuctioned, l.ID)
	}

	old := l.AuctionStatus
	ready := now
	l.AuctionStatus = AuctionReady
	l.AuctionReadyDate = &ready
	message := fmt.Sprintf("Loan %s marked ready for auction. %s", l.ID, notes)
	l.appendAuctionNotification("ready_for_auction", by, message, now)
	l.UpdatedAt = now

	return []Event{l.auctionStateChangedEvent(old, by, message, now)}, nil
}

// ScheduleAuction books the liquidation date. Only valid straight out of the
// ready state.
func (l *Loan) ScheduleAuction(date time.Time, notes, by string, now time.Time) ([]Event, error) {
	if date.IsZero() {
		return nil, apperrors.NewValidationError("date", "is required")
	}
	if l.AuctionStatus != AuctionReady {
		return nil, fmt.Errorf("%w: loan %s is in state %s", apperrors.ErrNotReadyForAuction, l.ID, l.AuctionStatus)
	}

	old := l.AuctionStatus
	scheduled := truncateToDay(date)
	l.AuctionStatus = AuctionScheduled
	l.AuctionScheduledDate = &scheduled
	message := fmt.Sprintf("Auction for loan %s scheduled for %s. %s", l.ID, scheduled.Format("2006-01-02"), notes)
	l.appendAuctionNotification("auction_scheduled", by, message, now)
	l.UpdatedAt = now

	return []Event{l.auctionStateChangedEvent(old, by, message, now)}, nil
}

// MarkAsAuctioned records the liquidation of the pledged collateral. This is
// the terminal step: the loan is force-closed as of the auction date.
func (l *Loan) MarkAsAuctioned(date time.Time, notes, by string, now time.Time) ([]Event, error) {
	if date.IsZero() {
		return nil, apperrors.NewValidationError("date", "is required")
	}
	if l.AuctionStatus != AuctionReady && l.AuctionStatus != AuctionScheduled {
		return nil, fmt.Errorf("%w: loan %s is in state %s", apperrors.ErrNotReadyForAuction, l.ID, l.AuctionStatus)
	}

	old := l.AuctionStatus
	auctionDate := truncateToDay(date)
	l.AuctionStatus = Auctioned
	l.AuctionDate = &auctionDate
	l.Status = StatusClosed
	l.ClosedDate = &auctionDate
	message := fmt.Sprintf("Collateral for loan %s auctioned on %s. %s", l.ID, auctionDate.Format("2006-01-02"), notes)
	l.appendAuctionNotification("auctioned", by, message, now)
	l.UpdatedAt = now

	return []Event{l.auctionStateChangedEvent(old, by, message, now)}, nil
}

// CancelAuction backs the loan out of the auction pipeline. Allowed from any
// state except a completed auction.
func (l *Loan) CancelAuction(notes, by string, now time.Time) ([]Event, error) {
	if l.AuctionStatus == Auctioned {
		return nil, fmt.Errorf("%w: loan %s", apperrors.ErrAlreadyAuctioned, l.ID)
	}

	old := l.AuctionStatus
	l.AuctionStatus = AuctionCancelled
	message := fmt.Sprintf("Auction for loan %s cancelled. %s", l.ID, notes)
	l.appendAuctionNotification("auction_cancelled", by, message, now)
	l.UpdatedAt = now

	return []Event{l.auctionStateChangedEvent(old, by, message, now)}, nil
}
