package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType distinguishes the two halves of a double-entry pair.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

func (e EntryType) Valid() bool {
	return e == EntryDebit || e == EntryCredit
}

// Opposite returns the entry type that pairs with this one.
func (e EntryType) Opposite() EntryType {
	if e == EntryDebit {
		return EntryCredit
	}
	return EntryDebit
}

// EntryStatus is the closed set of ledger entry lifecycle states.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryPosted   EntryStatus = "posted"
	EntryReversed EntryStatus = "reversed"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryPending, EntryPosted, EntryReversed:
		return true
	}
	return false
}

// LedgerEntry is one immutable half of a double-entry bookkeeping record
// (spec §3, §4.1). Entries are never updated in place except to set
// RelatedEntryID right after creation, and to flip Status to reversed.
type LedgerEntry struct {
	ID                 int64           `db:"id" json:"id"`
	UserID             int64           `db:"user_id" json:"user_id"`
	EntryType          EntryType       `db:"entry_type" json:"entry_type"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	TransactionID      int64           `db:"transaction_id" json:"transaction_id"`
	RelatedEntryID     *int64          `db:"related_entry_id" json:"related_entry_id,omitempty"`
	SourceUserID       *int64          `db:"source_user_id" json:"source_user_id,omitempty"`
	DestinationUserID  *int64          `db:"destination_user_id" json:"destination_user_id,omitempty"`
	Description        string          `db:"description" json:"description"`
	Status             EntryStatus     `db:"status" json:"status"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	PostedAt           *time.Time      `db:"posted_at" json:"posted_at,omitempty"`
	ReversedAt         *time.Time      `db:"reversed_at" json:"reversed_at,omitempty"`
}

func (e *LedgerEntry) Validate() error {
	if e.UserID == 0 {
		return newFieldError("user_id", "user_id is required")
	}
	if !e.EntryType.Valid() {
		return newFieldError("entry_type", "invalid entry_type")
	}
	if !e.Amount.IsPositive() {
		return newFieldError("amount", "amount must be positive")
	}
	if e.TransactionID == 0 {
		return newFieldError("transaction_id", "transaction_id is required")
	}
	if !e.Status.Valid() {
		return newFieldError("status", "invalid status")
	}
	return nil
}

// Post marks the entry posted, linking it to its paired opposite entry.
func (e *LedgerEntry) Post(relatedEntryID int64, at time.Time) {
	e.RelatedEntryID = &relatedEntryID
	e.Status = EntryPosted
	e.PostedAt = &at
}

// Reverse marks a previously posted entry reversed.
func (e *LedgerEntry) Reverse(at time.Time) {
	e.Status = EntryReversed
	e.ReversedAt = &at
}
