// Package errors defines the typed error taxonomy the ledger-backed account
// engine returns to its callers (spec §7). It mirrors the shape of the
// teacher's domain error package: a single DomainError carrying a stable
// code, a human-readable message, structured details, and a retryability
// flag, plus constructor helpers for each category.
package errors

import (
	"errors"
	"fmt"
)

// Code is one of the closed set of error codes spec §7 names. Codes are
// grouped into Validation, State, Policy, Integrity, and Infrastructure
// categories; see the Category method.
type Code string

const (
	// Validation
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeAccountNotFound    Code = "ACCOUNT_NOT_FOUND"
	CodeOwnershipViolation Code = "OWNERSHIP_VIOLATION"
	CodeEmailTaken         Code = "EMAIL_TAKEN"

	// State
	CodeActorInactive  Code = "ACTOR_INACTIVE"
	CodeAccountFrozen  Code = "ACCOUNT_FROZEN"
	CodeAccountClosed  Code = "ACCOUNT_CLOSED"
	CodeKYCRejected    Code = "KYC_REJECTED"
	CodeAlreadyReversed Code = "ALREADY_REVERSED"

	// Policy
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeNotAdmin            Code = "NOT_ADMIN"
	CodeAmountExceedsCeiling Code = "AMOUNT_EXCEEDS_CEILING"

	// Integrity (never user-facing; signals a bug, triggers a critical audit event)
	CodeOrphanedUser          Code = "ORPHANED_USER"
	CodeLedgerImbalance       Code = "LEDGER_IMBALANCE"
	CodeMissingAccountBinding Code = "MISSING_ACCOUNT_BINDING"

	// Infrastructure
	CodeTimeout Code = "TIMEOUT"
	CodeDBError Code = "DB_ERROR"
)

type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryState          Category = "state"
	CategoryPolicy         Category = "policy"
	CategoryIntegrity      Category = "integrity"
	CategoryInfrastructure Category = "infrastructure"
)

// Category classifies a code per spec §7's taxonomy.
func (c Code) Category() Category {
	switch c {
	case CodeInvalidAmount, CodeUserNotFound, CodeAccountNotFound, CodeOwnershipViolation, CodeEmailTaken:
		return CategoryValidation
	case CodeActorInactive, CodeAccountFrozen, CodeAccountClosed, CodeKYCRejected, CodeAlreadyReversed:
		return CategoryState
	case CodeInsufficientFunds, CodeNotAdmin, CodeAmountExceedsCeiling:
		return CategoryPolicy
	case CodeOrphanedUser, CodeLedgerImbalance, CodeMissingAccountBinding:
		return CategoryIntegrity
	case CodeTimeout, CodeDBError:
		return CategoryInfrastructure
	default:
		return CategoryInfrastructure
	}
}

// IsIntegrity reports whether a code represents an invariant violation that
// must never be surfaced to an end user and must trigger a critical audit
// event instead (spec §7).
func (c Code) IsIntegrity() bool {
	return c.Category() == CategoryIntegrity
}

// DomainError is the typed error every core operation returns instead of a
// bare string, mirroring the teacher's domain error shape.
type DomainError struct {
	Err       error
	Code      Code
	Field     string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

func newError(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func New(code Code, message string) *DomainError { return newError(code, message) }

func WithField(code Code, message, field string) *DomainError {
	e := newError(code, message)
	e.Field = field
	return e
}

func WithDetails(code Code, message string, details map[string]interface{}) *DomainError {
	e := newError(code, message)
	e.Details = details
	return e
}

// Wrap attaches a DomainError code/message to an underlying infrastructure
// error while preserving it for errors.Is/errors.As chains.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Err: err, Code: code, Message: message, Retryable: code.Category() == CategoryInfrastructure}
}

// --- category-specific constructors, mirroring the teacher's NotFoundError/
// ValidationError/ConflictError style ---

func InvalidAmount(field string) *DomainError {
	return WithField(CodeInvalidAmount, "amount must be a positive decimal", field)
}

func UserNotFound(userID int64) *DomainError {
	return WithDetails(CodeUserNotFound, "user not found", map[string]interface{}{"user_id": userID})
}

func AccountNotFound(accountID int64) *DomainError {
	return WithDetails(CodeAccountNotFound, "account not found", map[string]interface{}{"account_id": accountID})
}

func OwnershipViolation(accountID, claimedUserID int64) *DomainError {
	return WithDetails(CodeOwnershipViolation, "account does not belong to the acting user", map[string]interface{}{
		"account_id": accountID, "claimed_user_id": claimedUserID,
	})
}

func EmailTaken(email string) *DomainError {
	return WithDetails(CodeEmailTaken, "email is already registered", map[string]interface{}{"email": email})
}

func ActorInactive(userID int64) *DomainError {
	return WithDetails(CodeActorInactive, "actor is not active", map[string]interface{}{"user_id": userID})
}

func AccountFrozen(accountID int64) *DomainError {
	return WithDetails(CodeAccountFrozen, "account is frozen", map[string]interface{}{"account_id": accountID})
}

func AccountClosed(accountID int64) *DomainError {
	return WithDetails(CodeAccountClosed, "account is closed", map[string]interface{}{"account_id": accountID})
}

func KYCRejected(userID int64) *DomainError {
	return WithDetails(CodeKYCRejected, "party's kyc status is rejected", map[string]interface{}{"user_id": userID})
}

func AlreadyReversed(transactionID int64) *DomainError {
	return WithDetails(CodeAlreadyReversed, "transaction has already been reversed", map[string]interface{}{"transaction_id": transactionID})
}

func InsufficientFunds(userID int64, available, requested string) *DomainError {
	return WithDetails(CodeInsufficientFunds, "insufficient funds", map[string]interface{}{
		"user_id": userID, "available": available, "requested": requested,
	})
}

func NotAdmin(userID int64) *DomainError {
	return WithDetails(CodeNotAdmin, "actor is not an admin", map[string]interface{}{"user_id": userID})
}

func AmountExceedsCeiling(ceiling string) *DomainError {
	return WithDetails(CodeAmountExceedsCeiling, "amount exceeds configured ceiling", map[string]interface{}{"ceiling": ceiling})
}

func OrphanedUser(userID int64) *DomainError {
	return WithDetails(CodeOrphanedUser, "user has no owned account", map[string]interface{}{"user_id": userID})
}

func LedgerImbalance(transactionID int64, detail string) *DomainError {
	return WithDetails(CodeLedgerImbalance, "ledger entries for transaction do not balance: "+detail, map[string]interface{}{"transaction_id": transactionID})
}

func MissingAccountBinding(transactionID int64) *DomainError {
	return WithDetails(CodeMissingAccountBinding, "transaction is missing a user_id or account_id binding", map[string]interface{}{"transaction_id": transactionID})
}

func Timeout(op string) *DomainError {
	e := WithDetails(CodeTimeout, "operation timed out", map[string]interface{}{"operation": op})
	e.Retryable = true
	return e
}

func DBError(err error) *DomainError {
	e := Wrap(err, CodeDBError, "database operation failed")
	e.Retryable = true
	return e
}

// GetCode extracts the Code from err if it is (or wraps) a *DomainError.
func GetCode(err error) (Code, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// Is reports whether err is a DomainError carrying the given code.
func Is(err error, code Code) bool {
	c, ok := GetCode(err)
	return ok && c == code
}

// IsRetryable reports whether the caller may retry the operation once, per
// spec §7's infrastructure-error propagation policy. This is what pkg/retry
// consults instead of the teacher's missing pkg/errors.ShouldRetry.
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}
