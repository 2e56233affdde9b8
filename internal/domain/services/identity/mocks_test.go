package identity_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

type mockUserRepo struct {
	users map[int64]*entities.User
}

func newMockUserRepo(users ...*entities.User) *mockUserRepo {
	m := &mockUserRepo{users: map[int64]*entities.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, tx *sql.Tx, u *entities.User) error {
	m.users[u.ID] = u
	return nil
}
func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domainerrors.UserNotFound(id)
	}
	return u, nil
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeUserNotFound, "not found")
}
func (m *mockUserRepo) Update(ctx context.Context, tx *sql.Tx, u *entities.User) error {
	m.users[u.ID] = u
	return nil
}
func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}
func (m *mockUserRepo) ListAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockAccountRepo struct {
	accounts   map[int64]*entities.Account
	ownerCount map[int64]int
	orphanIDs  []int64
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: map[int64]*entities.Account{}, ownerCount: map[int64]int{}}
}

func (m *mockAccountRepo) Create(ctx context.Context, tx *sql.Tx, a *entities.Account) error {
	m.accounts[a.ID] = a
	m.ownerCount[a.OwnerID]++
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
	for _, a := range m.accounts {
		if a.AccountNumber == number {
			return a, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "not found by number")
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
	return nil
}
func (m *mockAccountRepo) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	return m.ownerCount[ownerID], nil
}
func (m *mockAccountRepo) ListOrphanIDs(ctx context.Context) ([]int64, error) {
	return m.orphanIDs, nil
}

type mockTransactionRepo struct {
	nullBound int
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
	return decimal.Zero, nil
}
func (m *mockTransactionRepo) CountWithNullBinding(ctx context.Context) (int, error) {
	return m.nullBound, nil
}

type mockLedgerRepo struct{}

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
	return decimal.Zero, nil
}
func (m *mockLedgerRepo) SystemTotals(ctx context.Context) (totalCredits, totalDebits decimal.Decimal, err error) {
	return decimal.Zero, decimal.Zero, nil
}
func (m *mockLedgerRepo) SumOfAllUserBalances(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (m *mockLedgerRepo) CountUnpairedPosted(ctx context.Context) (int, error) { return 0, nil }
func (m *mockLedgerRepo) SumByTransactionAndType(ctx context.Context, transactionID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
