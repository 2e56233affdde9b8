package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of money-movement kinds (spec §3).
type TransactionType string

const (
	TransactionDeposit     TransactionType = "deposit"
	TransactionWithdrawal  TransactionType = "withdrawal"
	TransactionFundTransfer TransactionType = "fund_transfer"
	TransactionInterest    TransactionType = "interest"
	TransactionReversal    TransactionType = "reversal"
	TransactionSystemSeed  TransactionType = "system_seed"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionFundTransfer,
		TransactionInterest, TransactionReversal, TransactionSystemSeed:
		return true
	}
	return false
}

// Direction records whether a transaction, from the acting user's
// perspective, adds or removes funds.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Opposite returns the reverse direction, used when building a reversal's
// compensating transaction record.
func (d Direction) Opposite() Direction {
	if d == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// TransactionStatus is the closed set of lifecycle states a transaction can
// occupy (spec §3, §4.4).
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionBlocked   TransactionStatus = "blocked"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionBlocked, TransactionCompleted, TransactionFailed, TransactionCancelled:
		return true
	}
	return false
}

// Transaction is a single requested money movement. It always carries both a
// user and an account id (spec §3 invariant: never NULL).
type Transaction struct {
	ID               int64             `db:"id" json:"id"`
	UserID           int64             `db:"user_id" json:"user_id"`
	AccountID        int64             `db:"account_id" json:"account_id"`
	Amount           decimal.Decimal   `db:"amount" json:"amount"`
	TransactionType  TransactionType   `db:"transaction_type" json:"transaction_type"`
	Direction        Direction         `db:"direction" json:"direction"`
	Status           TransactionStatus `db:"status" json:"status"`
	Description      string            `db:"description" json:"description"`
	KYCStatusAtTime  KYCStatus         `db:"kyc_status_at_time" json:"kyc_status_at_time"`
	IdempotencyKey   *string           `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
}

func (t *Transaction) Validate() error {
	if t.UserID == 0 {
		return newFieldError("user_id", "user_id is required")
	}
	if t.AccountID == 0 {
		return newFieldError("account_id", "account_id is required")
	}
	if !t.Amount.IsPositive() {
		return newFieldError("amount", "amount must be positive")
	}
	if !t.TransactionType.Valid() {
		return newFieldError("transaction_type", "invalid transaction_type")
	}
	if !t.Direction.Valid() {
		return newFieldError("direction", "invalid direction")
	}
	if !t.Status.Valid() {
		return newFieldError("status", "invalid status")
	}
	if !t.KYCStatusAtTime.Valid() {
		return newFieldError("kyc_status_at_time", "invalid kyc_status_at_time")
	}
	return nil
}

// MarkCompleted transitions the transaction to completed and stamps
// CompletedAt; callers must already hold the enclosing database transaction.
func (t *Transaction) MarkCompleted(at time.Time) {
	t.Status = TransactionCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
}

func (t *Transaction) MarkCancelled(at time.Time) {
	t.Status = TransactionCancelled
	t.UpdatedAt = at
}
