// Package gate implements the transaction admission controller (spec §4.4):
// an ordered sequence of checks that decide, before any ledger write,
// whether a requested money movement is admissible and at what initial
// status. Grounded on the teacher's services/limits/service.go verdict-object
// pattern (ValidateDeposit returning a LimitCheckResult), generalized into
// the spec's eight-rule ordered gate.
package gate

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
	"github.com/rail-service/ledger-core/internal/domain/repositories"
)

// OperationType names the kind of money movement being gated.
type OperationType string

const (
	OperationDeposit    OperationType = "deposit"
	OperationWithdrawal OperationType = "withdrawal"
	OperationTransfer   OperationType = "transfer"
	OperationAdminFund  OperationType = "admin_fund"
)

// Request is the gate's input (spec §4.4).
type Request struct {
	ActorUserID     int64
	SourceAccountID *int64
	TargetAccountID *int64
	Amount          decimal.Decimal
	Operation       OperationType
}

// ComplianceHook is the pluggable fraud/compliance predicate named in rule 8.
// It must be deterministic given its inputs for replayability.
type ComplianceHook func(ctx context.Context, req Request) (blocked bool, reason string)

// AlwaysPass is the default compliance hook: it never blocks.
func AlwaysPass(ctx context.Context, req Request) (bool, string) { return false, "" }

// Verdict is the gate's admission decision.
type Verdict struct {
	Allowed          bool
	InitialStatus    entities.TransactionStatus
	Reason           string
	ErrorCode        domainerrors.Code
	ActorKYCSnapshot entities.KYCStatus
}

type Service struct {
	userRepo        repositories.UserRepository
	accountRepo     repositories.AccountRepository
	balanceFunc     func(ctx context.Context, userID int64) (decimal.Decimal, error)
	complianceHook  ComplianceHook
}

// New constructs the gate. balanceFunc is typically balance.Service.UserBalance,
// injected as a function to avoid an import cycle between gate and balance.
func New(userRepo repositories.UserRepository, accountRepo repositories.AccountRepository, balanceFunc func(ctx context.Context, userID int64) (decimal.Decimal, error), hook ComplianceHook) *Service {
	if hook == nil {
		hook = AlwaysPass
	}
	return &Service{userRepo: userRepo, accountRepo: accountRepo, balanceFunc: balanceFunc, complianceHook: hook}
}

func deny(code domainerrors.Code, reason string) *Verdict {
	return &Verdict{Allowed: false, ErrorCode: code, Reason: reason}
}

// Admit runs the eight ordered admission rules (spec §4.4) and returns a
// verdict. The first failing rule short-circuits the remaining ones.
func (s *Service) Admit(ctx context.Context, req Request) (*Verdict, error) {
	// Rule 1: positive amount.
	if !req.Amount.IsPositive() {
		return deny(domainerrors.CodeInvalidAmount, "amount must be positive"), nil
	}

	// Rule 2: actor exists and is active.
	actor, err := s.userRepo.GetByID(ctx, req.ActorUserID)
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeUserNotFound) {
			return deny(domainerrors.CodeUserNotFound, "actor not found"), nil
		}
		return nil, err
	}
	if !actor.IsActive {
		return deny(domainerrors.CodeActorInactive, "actor is not active"), nil
	}

	var accounts []*entities.Account
	for _, id := range []*int64{req.SourceAccountID, req.TargetAccountID} {
		if id == nil {
			continue
		}
		// Rule 3: account existence.
		acc, err := s.accountRepo.GetByID(ctx, *id)
		if err != nil {
			if domainerrors.Is(err, domainerrors.CodeAccountNotFound) {
				return deny(domainerrors.CodeAccountNotFound, "referenced account does not exist"), nil
			}
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	// Rule 4: ownership binding.
	for _, acc := range accounts {
		if acc.IsAdminAccount {
			if !actor.IsAdmin {
				return deny(domainerrors.CodeOwnershipViolation, "only an admin may act on an admin account"), nil
			}
			continue
		}
		if acc.OwnerID != req.ActorUserID && !(req.Operation == OperationAdminFund && actor.IsAdmin) {
			return deny(domainerrors.CodeOwnershipViolation, "account does not belong to the acting user"), nil
		}
	}

	// Rule 5: account status.
	for _, acc := range accounts {
		switch acc.Status {
		case entities.AccountFrozen:
			return deny(domainerrors.CodeAccountFrozen, "account is frozen"), nil
		case entities.AccountClosed:
			return deny(domainerrors.CodeAccountClosed, "account is closed"), nil
		}
	}

	// Rule 6: KYC gate, evaluated against every non-admin party (the actor,
	// and the owners of every referenced non-admin account).
	parties := map[int64]entities.KYCStatus{}
	if !actor.IsAdmin {
		parties[actor.ID] = actor.KYCStatus
	}
	for _, acc := range accounts {
		if acc.IsAdminAccount {
			continue
		}
		if acc.OwnerID == actor.ID {
			continue
		}
		owner, err := s.userRepo.GetByID(ctx, acc.OwnerID)
		if err != nil {
			return nil, err
		}
		parties[owner.ID] = owner.KYCStatus
	}

	initialStatus := entities.TransactionCompleted
	for _, status := range parties {
		switch status {
		case entities.KYCRejected:
			return deny(domainerrors.CodeKYCRejected, "a party's kyc status is rejected"), nil
		case entities.KYCNotStarted, entities.KYCPending, entities.KYCSubmitted:
			initialStatus = entities.TransactionPending
		}
	}

	// Rule 7: sufficient funds, for withdrawals and the debit side of a
	// transfer. Admin accounts are exempt only for admin_fund operations.
	if req.Operation == OperationWithdrawal || req.Operation == OperationTransfer || req.Operation == OperationAdminFund {
		debitUserID := actor.ID
		if req.SourceAccountID != nil {
			for _, acc := range accounts {
				if acc.ID == *req.SourceAccountID {
					debitUserID = acc.OwnerID
				}
			}
		}
		exemptAsReserve := req.Operation == OperationAdminFund && actor.IsAdmin
		if !exemptAsReserve {
			available, err := s.balanceFunc(ctx, debitUserID)
			if err != nil {
				return nil, err
			}
			if available.LessThan(req.Amount) {
				return deny(domainerrors.CodeInsufficientFunds, "insufficient funds"), nil
			}
		}
	}

	// Rule 8: pluggable fraud/compliance hook.
	if blocked, reason := s.complianceHook(ctx, req); blocked {
		return &Verdict{Allowed: true, InitialStatus: entities.TransactionBlocked, Reason: reason, ActorKYCSnapshot: actor.KYCStatus}, nil
	}

	return &Verdict{Allowed: true, InitialStatus: initialStatus, ActorKYCSnapshot: actor.KYCStatus}, nil
}
