package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// LedgerRepository persists LedgerEntry rows and answers the aggregate
// queries the balance service and invariant verifier rely on. Grounded
// directly on the teacher's ledger_repository.go: entry creation, the
// GetTotalDebitsAndCredits/CountOrphanedEntries/CountInvalidTransactions
// reconciliation query shapes.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, user_id, entry_type, amount, transaction_id, related_entry_id, source_user_id, destination_user_id, description, status, created_at, posted_at, reversed_at`

func (r *LedgerRepository) CreateEntry(ctx context.Context, tx *sql.Tx, e *entities.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate ledger entry: %w", err)
	}
	query := `
		INSERT INTO ledger_entries (user_id, entry_type, amount, transaction_id, related_entry_id, source_user_id, destination_user_id, description, status, created_at, posted_at, reversed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := tx.QueryRowContext(ctx, query,
		e.UserID, e.EntryType, e.Amount, e.TransactionID, e.RelatedEntryID, e.SourceUserID, e.DestinationUserID,
		e.Description, e.Status, e.CreatedAt, e.PostedAt, e.ReversedAt,
	).Scan(&e.ID)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("create ledger entry: %w", err))
	}
	return nil
}

func (r *LedgerRepository) SetRelatedEntry(ctx context.Context, tx *sql.Tx, entryID, relatedEntryID int64) error {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx, `UPDATE ledger_entries SET related_entry_id=$1, status='posted', posted_at=$2 WHERE id=$3`,
		relatedEntryID, now, entryID)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("set related entry: %w", err))
	}
	return nil
}

func (r *LedgerRepository) MarkReversed(ctx context.Context, tx *sql.Tx, entryID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE ledger_entries SET status='reversed', reversed_at=$1 WHERE id=$2`, at, entryID)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("mark entry reversed: %w", err))
	}
	return nil
}

func (r *LedgerRepository) GetEntriesByTransactionID(ctx context.Context, transactionID int64) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1 ORDER BY id`
	var entries []*entities.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, transactionID); err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("get entries by transaction: %w", err))
	}
	return entries, nil
}

func (r *LedgerRepository) SumPostedByUserAndType(ctx context.Context, userID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	var raw string
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1 AND entry_type = $2 AND status = 'posted'`
	if err := r.db.GetContext(ctx, &raw, query, userID, entryType); err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("sum posted entries: %w", err))
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("parse sum: %w", err))
	}
	return sum, nil
}

// SystemTotals mirrors the teacher's GetTotalDebitsAndCredits reconciliation
// query, string-parsed via decimal.NewFromString to avoid float rounding.
func (r *LedgerRepository) SystemTotals(ctx context.Context) (totalCredits, totalDebits decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE 0 END), 0) AS total_credits,
			COALESCE(SUM(CASE WHEN entry_type = 'debit' THEN amount ELSE 0 END), 0) AS total_debits
		FROM ledger_entries WHERE status = 'posted'
	`
	var rawCredits, rawDebits string
	row := r.db.QueryRowContext(ctx, query)
	if scanErr := row.Scan(&rawCredits, &rawDebits); scanErr != nil {
		return decimal.Zero, decimal.Zero, domainerrors.DBError(fmt.Errorf("system totals: %w", scanErr))
	}
	totalCredits, err = decimal.NewFromString(rawCredits)
	if err != nil {
		return decimal.Zero, decimal.Zero, domainerrors.DBError(fmt.Errorf("parse total credits: %w", err))
	}
	totalDebits, err = decimal.NewFromString(rawDebits)
	if err != nil {
		return decimal.Zero, decimal.Zero, domainerrors.DBError(fmt.Errorf("parse total debits: %w", err))
	}
	return totalCredits, totalDebits, nil
}

func (r *LedgerRepository) SumOfAllUserBalances(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END
		), 0)
		FROM ledger_entries WHERE status = 'posted'
	`
	var raw string
	if err := r.db.GetContext(ctx, &raw, query); err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("sum of all user balances: %w", err))
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("parse sum: %w", err))
	}
	return sum, nil
}

// CountUnpairedPosted mirrors the teacher's CountInvalidTransactions query
// shape (GROUP BY transaction_id HAVING COUNT(*) != 2), grounding the
// ledger invariant verifier's unpaired-entry scan (spec §4.1, §8 property 1).
func (r *LedgerRepository) CountUnpairedPosted(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT transaction_id
			FROM ledger_entries
			WHERE status = 'posted'
			GROUP BY transaction_id
			HAVING COUNT(*) != 2 OR SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END) != 0
		) AS invalid
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, domainerrors.DBError(fmt.Errorf("count unpaired posted entries: %w", err))
	}
	return count, nil
}

func (r *LedgerRepository) SumByTransactionAndType(ctx context.Context, transactionID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	var raw string
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE transaction_id = $1 AND entry_type = $2`
	if err := r.db.GetContext(ctx, &raw, query, transactionID, entryType); err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("sum by transaction and type: %w", err))
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("parse sum: %w", err))
	}
	return sum, nil
}
