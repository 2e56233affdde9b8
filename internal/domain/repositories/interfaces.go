// Package repositories declares the persistence interfaces domain services
// depend on, following the teacher's convention of small, per-aggregate
// interfaces consumed by constructor injection rather than a single God
// repository.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
)

// UserRepository persists User aggregates.
type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, u *entities.User) error
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Update(ctx context.Context, tx *sql.Tx, u *entities.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListAllIDs(ctx context.Context) ([]int64, error)
}

// AccountRepository persists Account aggregates.
type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *entities.Account) error
	GetByID(ctx context.Context, id int64) (*entities.Account, error)
	GetByAccountNumber(ctx context.Context, number string) (*entities.Account, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Account, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
	ListOrphanIDs(ctx context.Context) ([]int64, error)
}

// TransactionRepository persists Transaction aggregates.
type TransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *entities.Transaction) error
	GetByID(ctx context.Context, id int64) (*entities.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Transaction, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status entities.TransactionStatus, completedAt *time.Time) error
	GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error)
	SumAmountByUserAndStatuses(ctx context.Context, userID int64, statuses []entities.TransactionStatus) (decimal.Decimal, error)
	CountWithNullBinding(ctx context.Context) (int, error)
}

// LedgerRepository persists LedgerEntry records and answers the aggregate
// queries the balance service and invariant verifier need.
type LedgerRepository interface {
	CreateEntry(ctx context.Context, tx *sql.Tx, e *entities.LedgerEntry) error
	SetRelatedEntry(ctx context.Context, tx *sql.Tx, entryID, relatedEntryID int64) error
	MarkReversed(ctx context.Context, tx *sql.Tx, entryID int64, at time.Time) error
	GetEntriesByTransactionID(ctx context.Context, transactionID int64) ([]*entities.LedgerEntry, error)
	SumPostedByUserAndType(ctx context.Context, userID int64, entryType entities.EntryType) (decimal.Decimal, error)
	SystemTotals(ctx context.Context) (totalCredits, totalDebits decimal.Decimal, err error)
	SumOfAllUserBalances(ctx context.Context) (decimal.Decimal, error)
	CountUnpairedPosted(ctx context.Context) (int, error)
	SumByTransactionAndType(ctx context.Context, transactionID int64, entryType entities.EntryType) (decimal.Decimal, error)
}

// AuditRepository persists AuditLogEntry records, append-only.
type AuditRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *entities.AuditLogEntry) error
	List(ctx context.Context, filter entities.AuditLogFilter) ([]*entities.AuditLogEntry, error)
}
