package loan

import "context"

// Repository is the persistence port for the loan aggregate. UpdateLoan
// performs an optimistic version check and returns
// apperrors.ErrVersionConflict when a concurrent writer got there first; the
// caller reloads and retries the whole operation.
type Repository interface {
	CreateLoan(ctx context.Context, l *Loan) error

	GetLoanByID(ctx context.Context, loanID string) (*Loan, error)

	UpdateLoan(ctx context.Context, l *Loan) error

	GetActiveLoanIDs(ctx context.Context) ([]string, error)

	GetClosedLoanIDsAwaitingGoldReturn(ctx context.Context) ([]string, error)
}
