package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// TransactionRepository persists Transaction aggregates, grounded on the
// teacher's ledger_repository.go CreateTransaction/GetTransactionByIdempotencyKey
// idempotency-key handling.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, account_id, amount, transaction_type, direction, status, description, kyc_status_at_time, idempotency_key, created_at, updated_at, completed_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *entities.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	query := `
		INSERT INTO transactions (user_id, account_id, amount, transaction_type, direction, status, description, kyc_status_at_time, idempotency_key, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	err := tx.QueryRowContext(ctx, query,
		t.UserID, t.AccountID, t.Amount, t.TransactionType, t.Direction, t.Status, t.Description,
		t.KYCStatusAtTime, t.IdempotencyKey, t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	).Scan(&t.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// A concurrent request already inserted this idempotency key; the
			// caller's GetByIdempotencyKey pre-check lost the race. Infrastructure,
			// not validation: retrying re-runs the pre-check and returns the
			// winner's record instead of erroring a second time.
			e := domainerrors.Wrap(err, domainerrors.CodeDBError, "duplicate idempotency key")
			e.Retryable = true
			return e
		}
		return domainerrors.DBError(fmt.Errorf("create transaction: %w", err))
	}
	return nil
}

func (r *TransactionRepository) scanRow(row rowScanner) (*entities.Transaction, error) {
	var t entities.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Amount, &t.TransactionType, &t.Direction, &t.Status,
		&t.Description, &t.KYCStatusAtTime, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	return &t, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	var t entities.Transaction
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "transaction not found")
		}
		return nil, domainerrors.DBError(fmt.Errorf("get transaction: %w", err))
	}
	return &t, nil
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	t, err := r.scanRow(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "transaction not found")
		}
		return nil, domainerrors.DBError(fmt.Errorf("get transaction for update: %w", err))
	}
	return t, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status entities.TransactionStatus, completedAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE transactions SET status=$1, completed_at=$2, updated_at=$3 WHERE id=$4`,
		status, completedAt, time.Now().UTC(), id)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("update transaction status: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domainerrors.New(domainerrors.CodeAccountNotFound, "transaction not found")
	}
	return nil
}

// GetByIdempotencyKey returns (nil, nil) when not found — not found is a
// valid outcome for an idempotency check, matching the teacher's
// GetTransactionByIdempotencyKey contract.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	var t entities.Transaction
	err := r.db.GetContext(ctx, &t, query, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("get transaction by idempotency key: %w", err))
	}
	return &t, nil
}

func (r *TransactionRepository) SumAmountByUserAndStatuses(ctx context.Context, userID int64, statuses []entities.TransactionStatus) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND status = ANY($2)`
	var raw string
	if err := r.db.GetContext(ctx, &raw, query, userID, pq.Array(statuses)); err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("sum transactions by status: %w", err))
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domainerrors.DBError(fmt.Errorf("parse sum: %w", err))
	}
	return sum, nil
}

func (r *TransactionRepository) CountWithNullBinding(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE user_id IS NULL OR account_id IS NULL`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, domainerrors.DBError(fmt.Errorf("count transactions with null binding: %w", err))
	}
	return count, nil
}
