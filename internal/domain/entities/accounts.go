package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account kinds (spec §3).
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountBusiness   AccountType = "business"
	AccountInvestment AccountType = "investment"
	AccountTreasury   AccountType = "treasury"
	AccountPrimary    AccountType = "primary"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountBusiness, AccountInvestment, AccountTreasury, AccountPrimary:
		return true
	}
	return false
}

// AccountStatus is the closed set of account lifecycle states.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

// KYCLevel records an account's verification tier. The transaction gate
// does not read it; its KYC check uses the owner's KYCStatus.
type KYCLevel string

const (
	KYCLevelNone  KYCLevel = "none"
	KYCLevelBasic KYCLevel = "basic"
	KYCLevelFull  KYCLevel = "full"
)

func (l KYCLevel) Valid() bool {
	switch l {
	case KYCLevelNone, KYCLevelBasic, KYCLevelFull:
		return true
	}
	return false
}

// SystemReserveAccountNumber is the single treasury account's fixed number
// (spec §3, §6.3).
const SystemReserveAccountNumber = "SYS-RESERVE-0001"

// SystemReserveSeedAmount is the balance the bootstrap routine seeds the
// treasury account with on first run (spec §6.3).
var SystemReserveSeedAmount = decimal.NewFromInt(10_000_000)

// Account is a ledger-backed holding owned by exactly one user.
type Account struct {
	ID              int64           `db:"id" json:"id"`
	AccountNumber   string          `db:"account_number" json:"account_number"`
	OwnerID         int64           `db:"owner_id" json:"owner_id"`
	AccountType     AccountType     `db:"account_type" json:"account_type"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	Currency        string          `db:"currency" json:"currency"`
	Status          AccountStatus   `db:"status" json:"status"`
	KYCLevel        KYCLevel        `db:"kyc_level" json:"kyc_level"`
	IsAdminAccount  bool            `db:"is_admin_account" json:"is_admin_account"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

func (a *Account) Validate() error {
	if a.AccountNumber == "" {
		return newFieldError("account_number", "account_number is required")
	}
	if a.OwnerID == 0 {
		return newFieldError("owner_id", "owner_id is required")
	}
	if !a.AccountType.Valid() {
		return newFieldError("account_type", "invalid account_type")
	}
	if !a.Status.Valid() {
		return newFieldError("status", "invalid status")
	}
	if !a.KYCLevel.Valid() {
		return newFieldError("kyc_level", "invalid kyc_level")
	}
	if a.Currency == "" {
		return newFieldError("currency", "currency is required")
	}
	if a.Balance.IsNegative() {
		return newFieldError("balance", "balance cannot be negative")
	}
	if a.IsAdminAccount && a.AccountType != AccountTreasury {
		return newFieldError("account_type", "admin accounts must be of type treasury")
	}
	if a.AccountNumber == SystemReserveAccountNumber {
		if !a.IsAdminAccount || a.AccountType != AccountTreasury || a.KYCLevel != KYCLevelFull {
			return newFieldError("account_number", "system reserve account must be an admin treasury account at full kyc level")
		}
	}
	return nil
}

func (a *Account) IsActive() bool { return a.Status == AccountActive }
