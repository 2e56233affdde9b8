package gate_test

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// mockUserRepo and mockAccountRepo are hand-rolled in-memory stand-ins for
// the repository interfaces, in the style of the teacher's
// test/unit MockUserRepository (a map keyed by id, no database involved).
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
	return nil, domainerrors.New(domainerrors.CodeUserNotFound, "not found by email")
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

func (m *mockAccountRepo) ListOrphanIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

// constantBalance returns a balanceFunc that always reports the same amount,
// regardless of which user is asked about.
func constantBalance(amount decimal.Decimal) func(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return func(ctx context.Context, userID int64) (decimal.Decimal, error) {
		return amount, nil
	}
}
