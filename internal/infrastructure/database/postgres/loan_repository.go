package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"goldloan-engine/internal/domain/loan"
	"goldloan-engine/internal/infrastructure/monitoring"
	"goldloan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var errMsgFormat = "%w: %w"

// LoanRepository persists the loan aggregate across the loans table and its
// child tables. Writes go through a single transaction with an optimistic
// version check on the root row.
type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

const loanColumns = `loan_id, version, customer_id, principal, term_months,
	original_interest_rate, current_interest_rate, current_upgrade_level,
	disbursement_date, status, closed_date, total_payment, total_paid,
	remaining_balance, gold_return_status, gold_return_date,
	gold_return_scheduled_date, gold_return_notes, auction_status,
	auction_ready_date, auction_scheduled_date, auction_date,
	created_at, updated_at`

func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l.Version = 1
	insertSQL := `
        INSERT INTO loans (` + loanColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                NULLIF($15, ''), $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = tx.Exec(ctx, insertSQL, r.rootArgs(l)...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "loan_id", l.ID, "error", err)
		return translateDBError(err, r.logger)
	}

	if err := r.insertChildren(ctx, tx, l); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit loan insert", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", l.ID, "num_installments", len(l.Installments))
	return nil
}

// UpdateLoan writes the whole aggregate back. The version predicate turns a
// lost-update race into apperrors.ErrVersionConflict instead of silently
// corrupting the money ledger.
func (r *LoanRepository) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateSQL := `
        UPDATE loans SET
            version = version + 1,
            customer_id = $3, principal = $4, term_months = $5,
            original_interest_rate = $6, current_interest_rate = $7,
            current_upgrade_level = $8, disbursement_date = $9, status = $10,
            closed_date = $11, total_payment = $12, total_paid = $13,
            remaining_balance = $14, gold_return_status = NULLIF($15, ''),
            gold_return_date = $16, gold_return_scheduled_date = $17,
            gold_return_notes = $18, auction_status = $19,
            auction_ready_date = $20, auction_scheduled_date = $21,
            auction_date = $22, created_at = $23, updated_at = $24
        WHERE loan_id = $1 AND version = $2`

	cmdTag, err := tx.Exec(ctx, updateSQL, r.rootArgs(l)...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Loan update hit a version conflict", "loan_id", l.ID, "version", l.Version)
		return fmt.Errorf("%w: loan %s version %d", apperrors.ErrVersionConflict, l.ID, l.Version)
	}

	deletes := []string{
		`DELETE FROM loan_installments WHERE loan_id = $1`,
		`DELETE FROM loan_payments WHERE loan_id = $1`,
		`DELETE FROM loan_upgrades WHERE loan_id = $1`,
		`DELETE FROM loan_gold_items WHERE loan_id = $1`,
		`DELETE FROM loan_gold_return_reminders WHERE loan_id = $1`,
		`DELETE FROM loan_auction_notifications WHERE loan_id = $1`,
	}
	for _, del := range deletes {
		if _, err := tx.Exec(ctx, del, l.ID); err != nil {
			r.logger.ErrorContext(ctx, "Failed to clear loan child rows", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
	}

	if err := r.insertChildren(ctx, tx, l); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit loan update", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	l.Version++
	return nil
}

func (r *LoanRepository) rootArgs(l *loan.Loan) []any {
	return []any{
		l.ID, l.Version, l.CustomerID, l.Principal, l.TermMonths,
		l.OriginalInterestRate, l.CurrentInterestRate, l.CurrentUpgradeLevel,
		l.DisbursementDate, l.Status, l.ClosedDate, l.TotalPayment, l.TotalPaid,
		l.RemainingBalance, string(l.GoldReturnStatus), l.GoldReturnDate,
		l.GoldReturnScheduledDate, l.GoldReturnNotes, l.AuctionStatus,
		l.AuctionReadyDate, l.AuctionScheduledDate, l.AuctionDate,
		l.CreatedAt, l.UpdatedAt,
	}
}

func (r *LoanRepository) insertChildren(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	batch := &pgx.Batch{}

	installmentSQL := `
        INSERT INTO loan_installments (loan_id, number, due_date, amount, amount_paid, status)
        VALUES ($1, $2, $3, $4, $5, $6)`
	for _, inst := range l.Installments {
		batch.Queue(installmentSQL, l.ID, inst.Number, inst.DueDate, inst.Amount, inst.AmountPaid, inst.Status)
	}

	paymentSQL := `
        INSERT INTO loan_payments (payment_id, loan_id, amount, paid_at, method, transaction_id,
            bank_name, entered_by, installment_number, remaining_balance, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, p := range l.Payments {
		batch.Queue(paymentSQL, p.ID, l.ID, p.Amount, p.Date, p.Method, p.TransactionID,
			p.BankName, p.EnteredBy, p.InstallmentNumber, p.RemainingBalanceSnapshot, p.Status)
	}

	upgradeSQL := `
        INSERT INTO loan_upgrades (loan_id, from_rate, to_rate, upgrade_date, reason, new_term_end_date)
        VALUES ($1, $2, $3, $4, $5, $6)`
	for _, u := range l.UpgradeHistory {
		batch.Queue(upgradeSQL, l.ID, u.FromRate, u.ToRate, u.UpgradeDate, u.Reason, u.NewTermEndDate)
	}

	goldItemSQL := `
        INSERT INTO loan_gold_items (loan_id, description, gross_weight, net_weight)
        VALUES ($1, $2, $3, $4)`
	for _, g := range l.GoldItems {
		batch.Queue(goldItemSQL, l.ID, g.Description, g.GrossWeight, g.NetWeight)
	}

	reminderSQL := `
        INSERT INTO loan_gold_return_reminders (loan_id, sent_date, type, sent_to, message)
        VALUES ($1, $2, $3, $4, $5)`
	for _, rem := range l.GoldReturnReminders {
		batch.Queue(reminderSQL, l.ID, rem.SentDate, rem.Type, rem.SentTo, rem.Message)
	}

	notificationSQL := `
        INSERT INTO loan_auction_notifications (loan_id, sent_date, type, actor, message)
        VALUES ($1, $2, $3, $4, $5)`
	for _, n := range l.AuctionNotifications {
		batch.Queue(notificationSQL, l.ID, n.Date, n.Type, n.Actor, n.Message)
	}

	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing child batch insert", "error", err, "entry_index", i, "loan_id", l.ID)
			return fmt.Errorf("%w: failed inserting child row %d: %w", apperrors.ErrDatabase, i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing child batch results", "error", err, "loan_id", l.ID)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID string) (*loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE loan_id = $1`
	status := "success"
	startTime := time.Now()

	var l loan.Loan
	var goldReturnStatus *string
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.Version, &l.CustomerID, &l.Principal, &l.TermMonths,
		&l.OriginalInterestRate, &l.CurrentInterestRate, &l.CurrentUpgradeLevel,
		&l.DisbursementDate, &l.Status, &l.ClosedDate, &l.TotalPayment, &l.TotalPaid,
		&l.RemainingBalance, &goldReturnStatus, &l.GoldReturnDate,
		&l.GoldReturnScheduledDate, &l.GoldReturnNotes, &l.AuctionStatus,
		&l.AuctionReadyDate, &l.AuctionScheduledDate, &l.AuctionDate,
		&l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if goldReturnStatus != nil {
		l.GoldReturnStatus = loan.GoldReturnStatus(*goldReturnStatus)
	}

	if err := r.loadChildren(ctx, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) loadChildren(ctx context.Context, l *loan.Loan) error {
	if err := r.loadInstallments(ctx, l); err != nil {
		return err
	}
	if err := r.loadPayments(ctx, l); err != nil {
		return err
	}
	if err := r.loadUpgrades(ctx, l); err != nil {
		return err
	}
	if err := r.loadGoldItems(ctx, l); err != nil {
		return err
	}
	if err := r.loadReminders(ctx, l); err != nil {
		return err
	}
	return r.loadAuctionNotifications(ctx, l)
}

func (r *LoanRepository) loadInstallments(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT number, due_date, amount, amount_paid, status
        FROM loan_installments
        WHERE loan_id = $1
        ORDER BY number ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.Installments = make([]loan.Installment, 0)
	for rows.Next() {
		var inst loan.Installment
		if err := rows.Scan(&inst.Number, &inst.DueDate, &inst.Amount, &inst.AmountPaid, &inst.Status); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.Installments = append(l.Installments, inst)
	}
	return rows.Err()
}

func (r *LoanRepository) loadPayments(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT payment_id, amount, paid_at, method, transaction_id, bank_name,
               entered_by, installment_number, remaining_balance, status
        FROM loan_payments
        WHERE loan_id = $1
        ORDER BY paid_at ASC, payment_id ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.Payments = make([]loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.Date, &p.Method, &p.TransactionID, &p.BankName,
			&p.EnteredBy, &p.InstallmentNumber, &p.RemainingBalanceSnapshot, &p.Status); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.Payments = append(l.Payments, p)
	}
	return rows.Err()
}

func (r *LoanRepository) loadUpgrades(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT from_rate, to_rate, upgrade_date, reason, new_term_end_date
        FROM loan_upgrades
        WHERE loan_id = $1
        ORDER BY upgrade_date ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query upgrade history", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.UpgradeHistory = make([]loan.RateUpgrade, 0)
	for rows.Next() {
		var u loan.RateUpgrade
		if err := rows.Scan(&u.FromRate, &u.ToRate, &u.UpgradeDate, &u.Reason, &u.NewTermEndDate); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan upgrade row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.UpgradeHistory = append(l.UpgradeHistory, u)
	}
	return rows.Err()
}

func (r *LoanRepository) loadGoldItems(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT description, gross_weight, net_weight
        FROM loan_gold_items
        WHERE loan_id = $1
        ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query gold items", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.GoldItems = make([]loan.GoldItem, 0)
	for rows.Next() {
		var g loan.GoldItem
		if err := rows.Scan(&g.Description, &g.GrossWeight, &g.NetWeight); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan gold item row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.GoldItems = append(l.GoldItems, g)
	}
	return rows.Err()
}

func (r *LoanRepository) loadReminders(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT sent_date, type, sent_to, message
        FROM loan_gold_return_reminders
        WHERE loan_id = $1
        ORDER BY sent_date ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query gold return reminders", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.GoldReturnReminders = make([]loan.GoldReturnReminder, 0)
	for rows.Next() {
		var rem loan.GoldReturnReminder
		if err := rows.Scan(&rem.SentDate, &rem.Type, &rem.SentTo, &rem.Message); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan reminder row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.GoldReturnReminders = append(l.GoldReturnReminders, rem)
	}
	return rows.Err()
}

func (r *LoanRepository) loadAuctionNotifications(ctx context.Context, l *loan.Loan) error {
	query := `
        SELECT sent_date, type, actor, message
        FROM loan_auction_notifications
        WHERE loan_id = $1
        ORDER BY sent_date ASC`

	rows, err := r.db.Query(ctx, query, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query auction notifications", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	l.AuctionNotifications = make([]loan.AuctionNotification, 0)
	for rows.Next() {
		var n loan.AuctionNotification
		if err := rows.Scan(&n.Date, &n.Type, &n.Actor, &n.Message); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan auction notification row", "loan_id", l.ID, "error", err)
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		l.AuctionNotifications = append(l.AuctionNotifications, n)
	}
	return rows.Err()
}

func (r *LoanRepository) GetActiveLoanIDs(ctx context.Context) ([]string, error) {
	return r.queryLoanIDs(ctx, "GetActiveLoanIDs",
		`SELECT loan_id FROM loans WHERE status = $1 ORDER BY loan_id`, loan.StatusActive)
}

func (r *LoanRepository) GetClosedLoanIDsAwaitingGoldReturn(ctx context.Context) ([]string, error) {
	return r.queryLoanIDs(ctx, "GetClosedLoanIDsAwaitingGoldReturn",
		`SELECT loan_id FROM loans
         WHERE status = $1 AND gold_return_status IN ($2, $3, $4)
         ORDER BY loan_id`,
		loan.StatusClosed, loan.GoldReturnPending, loan.GoldReturnScheduled, loan.GoldReturnOverdue)
}

func (r *LoanRepository) queryLoanIDs(ctx context.Context, operation, query string, args ...any) ([]string, error) {
	logCtx := r.logger.With(slog.String("operation", operation))
	logCtx.DebugContext(ctx, "Querying loan IDs")

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query loan IDs: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating loan IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished querying loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}
		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}
	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
