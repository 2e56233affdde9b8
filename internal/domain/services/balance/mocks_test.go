package balance_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

type ledgerFixture struct {
	userID    int64
	entryType entities.EntryType
	status    entities.EntryStatus
	amount    decimal.Decimal
}

// mockLedgerRepo serves balance.Service's read-side queries from a fixed
// fixture list rather than a full CRUD map, since balance.Service never
// writes to the ledger.
type mockLedgerRepo struct {
	fixtures []ledgerFixture
}

func (m *mockLedgerRepo) CreateEntry(ctx context.Context, tx *sql.Tx, e *entities.LedgerEntry) error {
	return nil
}
func (m *mockLedgerRepo) SetRelatedEntry(ctx context.Context, tx *sql.Tx, entryID, relatedEntryID int64) error {
	return nil
}
func (m *mockLedgerRepo) MarkReversed(ctx context.Context, tx *sql.Tx, entryID int64, at time.Time) error {
	return nil
}
func (m *mockLedgerRepo) GetEntriesByTransactionID(ctx context.Context, transactionID int64) ([]*entities.LedgerEntry, error) {
	return nil, nil
}

func (m *mockLedgerRepo) SumPostedByUserAndType(ctx context.Context, userID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, f := range m.fixtures {
		if f.userID == userID && f.entryType == entryType && f.status == entities.EntryPosted {
			sum = sum.Add(f.amount)
		}
	}
	return sum, nil
}

func (m *mockLedgerRepo) SystemTotals(ctx context.Context) (totalCredits, totalDebits decimal.Decimal, err error) {
	for _, f := range m.fixtures {
		if f.status != entities.EntryPosted {
			continue
		}
		if f.entryType == entities.EntryCredit {
			totalCredits = totalCredits.Add(f.amount)
		} else {
			totalDebits = totalDebits.Add(f.amount)
		}
	}
	return totalCredits, totalDebits, nil
}

func (m *mockLedgerRepo) SumOfAllUserBalances(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, f := range m.fixtures {
		if f.status != entities.EntryPosted {
			continue
		}
		if f.entryType == entities.EntryCredit {
			sum = sum.Add(f.amount)
		} else {
			sum = sum.Sub(f.amount)
		}
	}
	return sum, nil
}

func (m *mockLedgerRepo) CountUnpairedPosted(ctx context.Context) (int, error) { return 0, nil }

func (m *mockLedgerRepo) SumByTransactionAndType(ctx context.Context, transactionID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type mockAccountRepo struct {
	accounts map[int64]*entities.Account
}

func newMockAccountRepo(accounts ...*entities.Account) *mockAccountRepo {
	m := &mockAccountRepo{accounts: map[int64]*entities.Account{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountRepo) Create(ctx context.Context, tx *sql.Tx, a *entities.Account) error {
	m.accounts[a.ID] = a
	return nil
}
func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, domainerrors.AccountNotFound(id)
	}
	return a, nil
}
func (m *mockAccountRepo) GetByAccountNumber(ctx context.Context, number string) (*entities.Account, error) {
	return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "not found")
}
func (m *mockAccountRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Account, error) {
	return m.GetByID(ctx, id)
}
func (m *mockAccountRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Account, error) {
	var out []*entities.Account
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}
func (m *mockAccountRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	a, ok := m.accounts[id]
	if !ok {
		return domainerrors.AccountNotFound(id)
	}
	a.Balance = balance
	return nil
}
func (m *mockAccountRepo) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	count := 0
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}
func (m *mockAccountRepo) ListOrphanIDs(ctx context.Context) ([]int64, error) { return nil, nil }

type mockTransactionRepo struct {
	amountByUser map[int64]decimal.Decimal
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *sql.Tx, t *entities.Transaction) error {
	return nil
}
func (m *mockTransactionRepo) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	return nil, nil
}
func (m *mockTransactionRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Transaction, error) {
	return nil, nil
}
func (m *mockTransactionRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status entities.TransactionStatus, completedAt *time.Time) error {
	return nil
}
func (m *mockTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	return nil, nil
}
func (m *mockTransactionRepo) SumAmountByUserAndStatuses(ctx context.Context, userID int64, statuses []entities.TransactionStatus) (decimal.Decimal, error) {
	return m.amountByUser[userID], nil
}
func (m *mockTransactionRepo) CountWithNullBinding(ctx context.Context) (int, error) { return 0, nil }
