// Package ledger implements the double-entry ledger (spec §4.1): appending
// balanced entry pairs and reversing them. Grounded on the teacher's
// services/ledger/service.go transaction-scoping idiom, generalized from a
// single-transaction-type flow into the paired AppendPair/Reverse shape
// spec §4.1 requires.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
	"github.com/rail-service/ledger-core/internal/domain/repositories"
	"github.com/rail-service/ledger-core/pkg/logger"
)

// Service implements the ledger's append/reverse operations.
type Service struct {
	ledgerRepo      repositories.LedgerRepository
	transactionRepo repositories.TransactionRepository
	logger          *logger.Logger
}

func New(ledgerRepo repositories.LedgerRepository, transactionRepo repositories.TransactionRepository, log *logger.Logger) *Service {
	return &Service{ledgerRepo: ledgerRepo, transactionRepo: transactionRepo, logger: log}
}

// Pair is the result of AppendPair: the two posted entry ids.
type Pair struct {
	DebitEntryID  int64
	CreditEntryID int64
}

// AppendPair inserts a debit entry and a credit entry of equal amount for
// txID, links them via RelatedEntryID, and marks both posted. Must run
// inside the caller's database transaction (spec §4.1).
func (s *Service) AppendPair(ctx context.Context, tx *sql.Tx, txID int64, debitUserID, creditUserID int64, amount decimal.Decimal, description string) (*Pair, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.LedgerImbalance(txID, "amount must be positive")
	}

	now := time.Now().UTC()

	debit := &entities.LedgerEntry{
		UserID:            debitUserID,
		EntryType:         entities.EntryDebit,
		Amount:            amount,
		TransactionID:     txID,
		SourceUserID:      &creditUserID,
		DestinationUserID: &debitUserID,
		Description:       description,
		Status:            entities.EntryPending,
		CreatedAt:         now,
	}
	if err := s.ledgerRepo.CreateEntry(ctx, tx, debit); err != nil {
		return nil, domainerrors.LedgerImbalance(txID, fmt.Sprintf("failed to create debit entry: %v", err))
	}

	credit := &entities.LedgerEntry{
		UserID:            creditUserID,
		EntryType:         entities.EntryCredit,
		Amount:            amount,
		TransactionID:     txID,
		SourceUserID:      &creditUserID,
		DestinationUserID: &debitUserID,
		Description:       description,
		Status:            entities.EntryPending,
		CreatedAt:         now,
	}
	if err := s.ledgerRepo.CreateEntry(ctx, tx, credit); err != nil {
		return nil, domainerrors.LedgerImbalance(txID, fmt.Sprintf("failed to create credit entry: %v", err))
	}

	if err := s.ledgerRepo.SetRelatedEntry(ctx, tx, debit.ID, credit.ID); err != nil {
		return nil, domainerrors.LedgerImbalance(txID, fmt.Sprintf("failed to link debit to credit: %v", err))
	}
	if err := s.ledgerRepo.SetRelatedEntry(ctx, tx, credit.ID, debit.ID); err != nil {
		return nil, domainerrors.LedgerImbalance(txID, fmt.Sprintf("failed to link credit to debit: %v", err))
	}

	s.logger.Info("ledger pair appended", "transaction_id", txID, "debit_entry_id", debit.ID, "credit_entry_id", credit.ID, "amount", amount.String())

	return &Pair{DebitEntryID: debit.ID, CreditEntryID: credit.ID}, nil
}

// Reverse finds the posted entry pair for txID, marks both entries reversed,
// and appends a new opposite-direction pair under a new reversal
// transaction. Returns ALREADY_REVERSED if the pair is not both posted
// (spec §4.1, §8 property 7).
func (s *Service) Reverse(ctx context.Context, tx *sql.Tx, originalTxID int64, reversalTxID int64, reason string) (*Pair, error) {
	entries, err := s.ledgerRepo.GetEntriesByTransactionID(ctx, originalTxID)
	if err != nil {
		return nil, domainerrors.DBError(err)
	}
	if len(entries) != 2 {
		return nil, domainerrors.LedgerImbalance(originalTxID, fmt.Sprintf("expected 2 entries, found %d", len(entries)))
	}

	var debit, credit *entities.LedgerEntry
	for _, e := range entries {
		if e.Status != entities.EntryPosted {
			return nil, domainerrors.AlreadyReversed(originalTxID)
		}
		switch e.EntryType {
		case entities.EntryDebit:
			debit = e
		case entities.EntryCredit:
			credit = e
		}
	}
	if debit == nil || credit == nil {
		return nil, domainerrors.LedgerImbalance(originalTxID, "entry pair missing a debit or credit side")
	}
	if !debit.Amount.Equal(credit.Amount) {
		return nil, domainerrors.LedgerImbalance(originalTxID, "debit/credit amount mismatch")
	}

	now := time.Now().UTC()
	if err := s.ledgerRepo.MarkReversed(ctx, tx, debit.ID, now); err != nil {
		return nil, domainerrors.DBError(err)
	}
	if err := s.ledgerRepo.MarkReversed(ctx, tx, credit.ID, now); err != nil {
		return nil, domainerrors.DBError(err)
	}

	// The reversal swaps who was debited and who was credited, per spec §4.1:
	// "a new transaction of type reversal with a new entry pair in the
	// opposite direction and equal amount."
	pair, err := s.AppendPair(ctx, tx, reversalTxID, credit.UserID, debit.UserID, debit.Amount, "reversal: "+reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction reversed", "original_transaction_id", originalTxID, "reversal_transaction_id", reversalTxID)
	return pair, nil
}

// VerifyBalance checks the ledger balance law for a single transaction id
// (spec §8 property 1): posted credit sum must equal posted debit sum.
func (s *Service) VerifyBalance(ctx context.Context, transactionID int64) error {
	credits, err := s.ledgerRepo.SumByTransactionAndType(ctx, transactionID, entities.EntryCredit)
	if err != nil {
		return err
	}
	debits, err := s.ledgerRepo.SumByTransactionAndType(ctx, transactionID, entities.EntryDebit)
	if err != nil {
		return err
	}
	if !credits.Equal(debits) {
		return domainerrors.LedgerImbalance(transactionID, fmt.Sprintf("credits=%s debits=%s", credits, debits))
	}
	return nil
}
