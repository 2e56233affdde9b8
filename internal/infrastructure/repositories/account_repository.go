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

// AccountRepository persists Account aggregates via sqlx, grounded on the
// teacher's ledger_repository.go CreateAccount/GetAccountByID pattern.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, account_number, owner_id, account_type, balance, currency, status, kyc_level, is_admin_account, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, a *entities.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate account: %w", err)
	}
	query := `
		INSERT INTO accounts (account_number, owner_id, account_type, balance, currency, status, kyc_level, is_admin_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	err := tx.QueryRowContext(ctx, query,
		a.AccountNumber, a.OwnerID, a.AccountType, a.Balance, a.Currency, a.Status, a.KYCLevel, a.IsAdminAccount, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainerrors.New(domainerrors.CodeAccountNotFound, "account number already exists")
		}
		return domainerrors.DBError(fmt.Errorf("create account: %w", err))
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	var a entities.Account
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.AccountNotFound(id)
		}
		return nil, domainerrors.DBError(fmt.Errorf("get account: %w", err))
	}
	return &a, nil
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, number string) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	var a entities.Account
	if err := r.db.GetContext(ctx, &a, query, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "account not found by number")
		}
		return nil, domainerrors.DBError(fmt.Errorf("get account by number: %w", err))
	}
	return &a, nil
}

// GetByIDForUpdate locks the account row. Callers are responsible for
// acquiring locks in canonical ascending-id order (spec §5); see
// database.LockAccountsAscending.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	row := tx.QueryRowContext(ctx, query, id)

	var a entities.Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.OwnerID, &a.AccountType, &a.Balance, &a.Currency, &a.Status, &a.KYCLevel, &a.IsAdminAccount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.AccountNotFound(id)
		}
		return nil, domainerrors.DBError(fmt.Errorf("get account for update: %w", err))
	}
	return &a, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY id`
	var accounts []*entities.Account
	if err := r.db.SelectContext(ctx, &accounts, query, ownerID); err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("list accounts by owner: %w", err))
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`, balance, time.Now().UTC(), id)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("update account balance: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domainerrors.AccountNotFound(id)
	}
	return nil
}

func (r *AccountRepository) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts WHERE owner_id = $1`, ownerID); err != nil {
		return 0, domainerrors.DBError(fmt.Errorf("count accounts by owner: %w", err))
	}
	return count, nil
}

// ListOrphanIDs returns accounts whose owner_id no longer resolves to a
// user row (spec §4.3 finding (b): "accounts without an owner"). The
// owner_id foreign key (migrations/000002) should make this permanently
// empty for data this engine itself wrote; the scan stays defensive
// against rows inserted before that constraint existed.
func (r *AccountRepository) ListOrphanIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT a.id FROM accounts a LEFT JOIN users u ON u.id = a.owner_id WHERE u.id IS NULL ORDER BY a.id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("list orphan accounts: %w", err))
	}
	return ids, nil
}
