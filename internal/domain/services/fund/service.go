// Package fund implements the fund engine (spec §4.5): the orchestrator
// that composes the admission gate, the double-entry ledger, and the
// audit log into five atomic money-movement operations. Grounded on the
// teacher's services/ledger/service.go top-level Deposit/Withdraw/Transfer
// methods, each of which opened one *sql.Tx and drove several
// repositories through it; generalized here to call through the gate
// first and to add the admin-only reserve and reversal operations.
package fund

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
	"github.com/rail-service/ledger-core/internal/domain/repositories"
	"github.com/rail-service/ledger-core/internal/domain/services/audit"
	"github.com/rail-service/ledger-core/internal/domain/services/gate"
	"github.com/rail-service/ledger-core/internal/domain/services/ledger"
	"github.com/rail-service/ledger-core/internal/infrastructure/database"
	"github.com/rail-service/ledger-core/pkg/logger"
	"github.com/rail-service/ledger-core/pkg/metrics"
)

type Service struct {
	db              *sql.DB
	gate            *gate.Service
	ledger          *ledger.Service
	audit           *audit.Service
	userRepo        repositories.UserRepository
	accountRepo     repositories.AccountRepository
	transactionRepo repositories.TransactionRepository
	logger          *logger.Logger
	metrics         *metrics.Collectors
}

func New(db *sql.DB, gateSvc *gate.Service, ledgerSvc *ledger.Service, auditSvc *audit.Service, userRepo repositories.UserRepository, accountRepo repositories.AccountRepository, transactionRepo repositories.TransactionRepository, log *logger.Logger, m *metrics.Collectors) *Service {
	return &Service{
		db: db, gate: gateSvc, ledger: ledgerSvc, audit: auditSvc,
		userRepo: userRepo, accountRepo: accountRepo, transactionRepo: transactionRepo,
		logger: log, metrics: m,
	}
}

// Result is what every fund-engine operation returns: the persisted
// transaction record and, when posted, the ledger entry pair.
type Result struct {
	Transaction *entities.Transaction
	Pair        *ledger.Pair
}

func (s *Service) recordOutcome(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.FundEngineOperations.WithLabelValues(operation, outcome).Inc()
}

// Deposit credits accountID with amount on behalf of actorUserID (spec
// §4.5, §6.2). The gate decides the initial transaction status; the
// ledger pair is posted in the same database transaction only when that
// status is completed. A pending or blocked deposit posts no pair.
func (s *Service) Deposit(ctx context.Context, actorUserID, accountID int64, amount decimal.Decimal, description, idempotencyKey string) (*Result, error) {
	return s.runPaired(ctx, gate.Request{
		ActorUserID: actorUserID, TargetAccountID: &accountID, Amount: amount, Operation: gate.OperationDeposit,
	}, "deposit", entities.TransactionDeposit, actorUserID, accountID, amount, description, idempotencyKey,
		func(acc *entities.Account) (debitUserID, creditUserID int64) {
			return entities.SystemUserID, acc.OwnerID
		})
}

// Withdrawal debits accountID by amount (spec §4.5, §6.2).
func (s *Service) Withdrawal(ctx context.Context, actorUserID, accountID int64, amount decimal.Decimal, description, idempotencyKey string) (*Result, error) {
	return s.runPaired(ctx, gate.Request{
		ActorUserID: actorUserID, SourceAccountID: &accountID, Amount: amount, Operation: gate.OperationWithdrawal,
	}, "withdrawal", entities.TransactionWithdrawal, actorUserID, accountID, amount, description, idempotencyKey,
		func(acc *entities.Account) (debitUserID, creditUserID int64) {
			return acc.OwnerID, entities.SystemUserID
		})
}

// Transfer moves amount from sourceAccountID to targetAccountID (spec
// §4.5, §6.2). The recorded transaction is scoped to the source account;
// the ledger pair debits the source owner and credits the target owner.
func (s *Service) Transfer(ctx context.Context, actorUserID, sourceAccountID, targetAccountID int64, amount decimal.Decimal, description, idempotencyKey string) (*Result, error) {
	var targetAccount *entities.Account
	return s.runPairedWithTarget(ctx, gate.Request{
		ActorUserID: actorUserID, SourceAccountID: &sourceAccountID, TargetAccountID: &targetAccountID, Amount: amount, Operation: gate.OperationTransfer,
	}, "transfer", entities.TransactionFundTransfer, actorUserID, sourceAccountID, amount, description, idempotencyKey,
		[]int64{sourceAccountID, targetAccountID},
		func(tx *sql.Tx, accounts map[int64]*entities.Account) (debitUserID, creditUserID int64, err error) {
			source := accounts[sourceAccountID]
			targetAccount = accounts[targetAccountID]
			return source.OwnerID, targetAccount.OwnerID, nil
		})
}

// AdminFundFromReserve injects funds into an account directly from the
// system reserve, bypassing the sufficient-funds check (spec §4.5, §6.3).
// actorUserID must be an admin; the ledger effect and the audit entry
// commit in the same database transaction, so a failure anywhere leaves
// neither a partial ledger write nor a partial audit trail.
func (s *Service) AdminFundFromReserve(ctx context.Context, actorUserID, accountID int64, amount decimal.Decimal, reason string) (*Result, error) {
	admin, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, domainerrors.NotAdmin(actorUserID)
	}

	verdict, err := s.gate.Admit(ctx, gate.Request{
		ActorUserID: actorUserID, TargetAccountID: &accountID, Amount: amount, Operation: gate.OperationAdminFund,
	})
	if err != nil {
		s.recordOutcome("admin_fund", err)
		return nil, err
	}
	s.metrics.GateAdmissions.WithLabelValues(verdictLabel(verdict), string(verdict.ErrorCode)).Inc()
	if !verdict.Allowed {
		s.recordOutcome("admin_fund", domainerrors.New(verdict.ErrorCode, verdict.Reason))
		return nil, domainerrors.New(verdict.ErrorCode, verdict.Reason)
	}

	var result Result
	err = database.WithTransaction(ctx, s.db, sql.LevelRepeatableRead, func(tx *sql.Tx) error {
		if lerr := database.LockAccountsAscending(ctx, tx, accountID); lerr != nil {
			return lerr
		}
		acc, gerr := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if gerr != nil {
			return gerr
		}

		record := &entities.Transaction{
			UserID: acc.OwnerID, AccountID: accountID, Amount: amount, TransactionType: entities.TransactionSystemSeed,
			Direction: entities.DirectionCredit, Status: verdict.InitialStatus, Description: "admin fund: " + reason,
			KYCStatusAtTime: verdict.ActorKYCSnapshot,
		}
		if cerr := s.transactionRepo.Create(ctx, tx, record); cerr != nil {
			return cerr
		}

		var pair *ledger.Pair
		if record.Status == entities.TransactionCompleted {
			p, perr := s.ledger.AppendPair(ctx, tx, record.ID, entities.SystemUserID, acc.OwnerID, amount, "admin fund: "+reason)
			if perr != nil {
				return perr
			}
			pair = p
		}

		if _, aerr := s.audit.Log(ctx, tx, actorUserID, acc.OwnerID, &accountID, entities.AuditFund, reason,
			map[string]interface{}{"amount": amount.String(), "transaction_id": record.ID}, entities.AuditSuccess, ""); aerr != nil {
			return aerr
		}

		result = Result{Transaction: record, Pair: pair}
		return nil
	})
	s.recordOutcome("admin_fund", err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AdminReverse reverses a previously completed transaction (spec §4.5,
// §6.3, §8 property 7). actorUserID must be an admin. The audit entry is
// written inside the reversal's database transaction, so only a reversal
// or cancellation that commits is audited; a failed attempt leaves none.
func (s *Service) AdminReverse(ctx context.Context, actorUserID, originalTransactionID int64, reason string) (*Result, error) {
	admin, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, domainerrors.NotAdmin(actorUserID)
	}

	original, err := s.transactionRepo.GetByID(ctx, originalTransactionID)
	if err != nil {
		return nil, err
	}

	if original.Status == entities.TransactionPending || original.Status == entities.TransactionBlocked {
		return s.cancelPendingTransaction(ctx, actorUserID, original, reason)
	}

	var result Result
	err = database.WithTransaction(ctx, s.db, sql.LevelSerializable, func(tx *sql.Tx) error {
		reversal := &entities.Transaction{
			UserID: original.UserID, AccountID: original.AccountID, Amount: original.Amount,
			TransactionType: entities.TransactionReversal, Direction: original.Direction.Opposite(),
			Status: entities.TransactionCompleted, Description: "reversal: " + reason,
			KYCStatusAtTime: original.KYCStatusAtTime,
		}
		if cerr := s.transactionRepo.Create(ctx, tx, reversal); cerr != nil {
			return cerr
		}

		pair, rerr := s.ledger.Reverse(ctx, tx, originalTransactionID, reversal.ID, reason)
		if rerr != nil {
			return rerr
		}

		completedAt := reversal.CreatedAt
		reversal.MarkCompleted(completedAt)
		if uerr := s.transactionRepo.UpdateStatus(ctx, tx, reversal.ID, reversal.Status, &completedAt); uerr != nil {
			return uerr
		}

		if _, aerr := s.audit.Log(ctx, tx, actorUserID, original.UserID, nil, entities.AuditReverseTransaction, reason,
			map[string]interface{}{"original_transaction_id": originalTransactionID, "reversal_transaction_id": reversal.ID}, entities.AuditSuccess, ""); aerr != nil {
			return aerr
		}

		result = Result{Transaction: reversal, Pair: pair}
		return nil
	})
	s.recordOutcome("reverse", err)
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeLedgerImbalance) {
			s.metrics.LedgerImbalances.Inc()
		}
		return nil, err
	}
	return &result, nil
}

// cancelPendingTransaction handles AdminReverse for a pending or blocked
// original transaction: no ledger pair was ever posted for it (runPaired
// and runPairedWithTarget only post when status is completed), so
// reversing it is a status transition, not a ledger operation (spec §4.5:
// "a reversal of a pending/blocked transaction simply transitions it to
// cancelled without ledger effect").
func (s *Service) cancelPendingTransaction(ctx context.Context, actorUserID int64, original *entities.Transaction, reason string) (*Result, error) {
	var result Result
	err := database.WithTransaction(ctx, s.db, sql.LevelSerializable, func(tx *sql.Tx) error {
		original.MarkCancelled(time.Now().UTC())
		if uerr := s.transactionRepo.UpdateStatus(ctx, tx, original.ID, original.Status, nil); uerr != nil {
			return uerr
		}

		if _, aerr := s.audit.Log(ctx, tx, actorUserID, original.UserID, nil, entities.AuditReverseTransaction, reason,
			map[string]interface{}{"original_transaction_id": original.ID, "cancelled": true}, entities.AuditSuccess, ""); aerr != nil {
			return aerr
		}

		result = Result{Transaction: original}
		return nil
	})
	s.recordOutcome("reverse", err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// runPaired handles the common single-source-or-target-account shape
// shared by Deposit and Withdrawal.
func (s *Service) runPaired(ctx context.Context, req gate.Request, operation string, txType entities.TransactionType, actorUserID, accountID int64, amount decimal.Decimal, description, idempotencyKey string, resolveUsers func(acc *entities.Account) (debitUserID, creditUserID int64)) (*Result, error) {
	if idempotencyKey != "" {
		if existing, err := s.transactionRepo.GetByIdempotencyKey(ctx, idempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return &Result{Transaction: existing}, nil
		}
	}

	verdict, err := s.gate.Admit(ctx, req)
	if err != nil {
		s.recordOutcome(operation, err)
		return nil, err
	}
	s.metrics.GateAdmissions.WithLabelValues(verdictLabel(verdict), string(verdict.ErrorCode)).Inc()
	if !verdict.Allowed {
		s.recordOutcome(operation, domainerrors.New(verdict.ErrorCode, verdict.Reason))
		return nil, domainerrors.New(verdict.ErrorCode, verdict.Reason)
	}

	var result Result
	err = database.WithTransaction(ctx, s.db, sql.LevelRepeatableRead, func(tx *sql.Tx) error {
		if lerr := database.LockAccountsAscending(ctx, tx, accountID); lerr != nil {
			return lerr
		}
		acc, gerr := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if gerr != nil {
			return gerr
		}

		var keyPtr *string
		if idempotencyKey != "" {
			keyPtr = &idempotencyKey
		}
		record := &entities.Transaction{
			UserID: acc.OwnerID, AccountID: accountID, Amount: amount, TransactionType: txType,
			Direction: directionFor(txType, operation), Status: verdict.InitialStatus, Description: description,
			KYCStatusAtTime: verdict.ActorKYCSnapshot, IdempotencyKey: keyPtr,
		}
		if cerr := s.transactionRepo.Create(ctx, tx, record); cerr != nil {
			return cerr
		}

		var pair *ledger.Pair
		if record.Status == entities.TransactionCompleted {
			debitUserID, creditUserID := resolveUsers(acc)
			p, perr := s.ledger.AppendPair(ctx, tx, record.ID, debitUserID, creditUserID, amount, description)
			if perr != nil {
				return perr
			}
			pair = p
		}

		result = Result{Transaction: record, Pair: pair}
		return nil
	})
	s.recordOutcome(operation, err)
	return &result, err
}

// runPairedWithTarget is runPaired's two-account variant, used by Transfer,
// which must lock and read both the source and target accounts inside the
// same transaction in canonical ascending order (spec §5).
func (s *Service) runPairedWithTarget(ctx context.Context, req gate.Request, operation string, txType entities.TransactionType, actorUserID, primaryAccountID int64, amount decimal.Decimal, description, idempotencyKey string, accountIDs []int64, resolveUsers func(tx *sql.Tx, accounts map[int64]*entities.Account) (debitUserID, creditUserID int64, err error)) (*Result, error) {
	if idempotencyKey != "" {
		if existing, err := s.transactionRepo.GetByIdempotencyKey(ctx, idempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return &Result{Transaction: existing}, nil
		}
	}

	verdict, err := s.gate.Admit(ctx, req)
	if err != nil {
		s.recordOutcome(operation, err)
		return nil, err
	}
	s.metrics.GateAdmissions.WithLabelValues(verdictLabel(verdict), string(verdict.ErrorCode)).Inc()
	if !verdict.Allowed {
		s.recordOutcome(operation, domainerrors.New(verdict.ErrorCode, verdict.Reason))
		return nil, domainerrors.New(verdict.ErrorCode, verdict.Reason)
	}

	var result Result
	err = database.WithTransaction(ctx, s.db, sql.LevelSerializable, func(tx *sql.Tx) error {
		if lerr := database.LockAccountsAscending(ctx, tx, accountIDs...); lerr != nil {
			return lerr
		}
		accounts := map[int64]*entities.Account{}
		for _, id := range accountIDs {
			acc, gerr := s.accountRepo.GetByIDForUpdate(ctx, tx, id)
			if gerr != nil {
				return gerr
			}
			accounts[id] = acc
		}

		debitUserID, creditUserID, rerr := resolveUsers(tx, accounts)
		if rerr != nil {
			return rerr
		}

		var keyPtr *string
		if idempotencyKey != "" {
			keyPtr = &idempotencyKey
		}
		record := &entities.Transaction{
			UserID: debitUserID, AccountID: primaryAccountID, Amount: amount, TransactionType: txType,
			Direction: entities.DirectionDebit, Status: verdict.InitialStatus, Description: description,
			KYCStatusAtTime: verdict.ActorKYCSnapshot, IdempotencyKey: keyPtr,
		}
		if cerr := s.transactionRepo.Create(ctx, tx, record); cerr != nil {
			return cerr
		}

		var pair *ledger.Pair
		if record.Status == entities.TransactionCompleted {
			p, perr := s.ledger.AppendPair(ctx, tx, record.ID, debitUserID, creditUserID, amount, description)
			if perr != nil {
				return perr
			}
			pair = p
		}

		result = Result{Transaction: record, Pair: pair}
		return nil
	})
	s.recordOutcome(operation, err)
	return &result, err
}

func verdictLabel(v *gate.Verdict) string {
	if v.Allowed {
		return fmt.Sprintf("allowed_%s", v.InitialStatus)
	}
	return "denied"
}

func directionFor(txType entities.TransactionType, operation string) entities.Direction {
	switch operation {
	case "deposit", "admin_fund":
		return entities.DirectionCredit
	default:
		return entities.DirectionDebit
	}
}
