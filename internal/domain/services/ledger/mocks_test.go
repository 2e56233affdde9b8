package ledger_test

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// mockLedgerRepo is a map-backed stand-in for repositories.LedgerRepository,
// replicating the status transitions the real sqlx implementation performs
// in SetRelatedEntry/MarkReversed (see infrastructure/repositories/ledger_repository.go).
type mockLedgerRepo struct {
	entries map[int64]*entities.LedgerEntry
	nextID  int64
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{entries: map[int64]*entities.LedgerEntry{}}
}

func (m *mockLedgerRepo) CreateEntry(ctx context.Context, tx *sql.Tx, e *entities.LedgerEntry) error {
	m.nextID++
	e.ID = m.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockLedgerRepo) SetRelatedEntry(ctx context.Context, tx *sql.Tx, entryID, relatedEntryID int64) error {
	e, ok := m.entries[entryID]
	if !ok {
		return domainerrors.New(domainerrors.CodeLedgerImbalance, "entry not found")
	}
	now := time.Now().UTC()
	e.RelatedEntryID = &relatedEntryID
	e.Status = entities.EntryPosted
	e.PostedAt = &now
	return nil
}

func (m *mockLedgerRepo) MarkReversed(ctx context.Context, tx *sql.Tx, entryID int64, at time.Time) error {
	e, ok := m.entries[entryID]
	if !ok {
		return domainerrors.New(domainerrors.CodeLedgerImbalance, "entry not found")
	}
	e.Status = entities.EntryReversed
	e.ReversedAt = &at
	return nil
}

func (m *mockLedgerRepo) GetEntriesByTransactionID(ctx context.Context, transactionID int64) ([]*entities.LedgerEntry, error) {
	var out []*entities.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockLedgerRepo) SumPostedByUserAndType(ctx context.Context, userID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.UserID == userID && e.EntryType == entryType && e.Status == entities.EntryPosted {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (m *mockLedgerRepo) SystemTotals(ctx context.Context) (totalCredits, totalDebits decimal.Decimal, err error) {
	for _, e := range m.entries {
		if e.Status != entities.EntryPosted {
			continue
		}
		if e.EntryType == entities.EntryCredit {
			totalCredits = totalCredits.Add(e.Amount)
		} else {
			totalDebits = totalDebits.Add(e.Amount)
		}
	}
	return totalCredits, totalDebits, nil
}

func (m *mockLedgerRepo) SumOfAllUserBalances(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.Status != entities.EntryPosted {
			continue
		}
		if e.EntryType == entities.EntryCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

func (m *mockLedgerRepo) CountUnpairedPosted(ctx context.Context) (int, error) {
	byTx := map[int64][]*entities.LedgerEntry{}
	for _, e := range m.entries {
		if e.Status == entities.EntryPosted {
			byTx[e.TransactionID] = append(byTx[e.TransactionID], e)
		}
	}
	count := 0
	for _, es := range byTx {
		if len(es) != 2 {
			count++
		}
	}
	return count, nil
}

func (m *mockLedgerRepo) SumByTransactionAndType(ctx context.Context, transactionID int64, entryType entities.EntryType) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.TransactionID == transactionID && e.EntryType == entryType {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// mockTransactionRepo is a minimal stand-in for repositories.TransactionRepository.
type mockTransactionRepo struct {
	transactions map[int64]*entities.Transaction
	nextID       int64
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{transactions: map[int64]*entities.Transaction{}}
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *sql.Tx, t *entities.Transaction) error {
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.transactions[t.ID] = &cp
	return nil
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeAccountNotFound, "transaction not found")
	}
	return t, nil
}

func (m *mockTransactionRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*entities.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTransactionRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status entities.TransactionStatus, completedAt *time.Time) error {
	t, ok := m.transactions[id]
	if !ok {
		return domainerrors.New(domainerrors.CodeAccountNotFound, "transaction not found")
	}
	t.Status = status
	t.CompletedAt = completedAt
	return nil
}

func (m *mockTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	for _, t := range m.transactions {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTransactionRepo) SumAmountByUserAndStatuses(ctx context.Context, userID int64, statuses []entities.TransactionStatus) (decimal.Decimal, error) {
	set := map[entities.TransactionStatus]bool{}
	for _, s := range statuses {
		set[s] = true
	}
	sum := decimal.Zero
	for _, t := range m.transactions {
		if t.UserID == userID && set[t.Status] {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *mockTransactionRepo) CountWithNullBinding(ctx context.Context) (int, error) {
	return 0, nil
}
