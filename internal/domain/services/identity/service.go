// Package identity implements user and account provisioning, the reserved
// system-user/treasury bootstrap, and the invariant verifier (spec §4.3).
// Grounded on the teacher's account-provisioning idiom in
// ledger_repository.go's GetOrCreateUserAccount, generalized into the
// spec's atomic CreateUser and idempotent Bootstrap routines.
package identity

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

type Service struct {
	db              *sql.DB
	userRepo        repositories.UserRepository
	accountRepo     repositories.AccountRepository
	ledgerRepo      repositories.LedgerRepository
	transactionRepo repositories.TransactionRepository
	logger          *logger.Logger
}

func New(db *sql.DB, userRepo repositories.UserRepository, accountRepo repositories.AccountRepository, ledgerRepo repositories.LedgerRepository, transactionRepo repositories.TransactionRepository, log *logger.Logger) *Service {
	return &Service{db: db, userRepo: userRepo, accountRepo: accountRepo, ledgerRepo: ledgerRepo, transactionRepo: transactionRepo, logger: log}
}

// accountNumberFor matches spec §4.3's literal format: "ACC" + user_id +
// "_" + low-order-micros(now).
func accountNumberFor(userID int64, now time.Time) string {
	micros := now.UnixMicro() % 1_000_000
	return fmt.Sprintf("ACC%d_%d", userID, micros)
}

// CreateUser atomically inserts a user and its primary account (spec §4.3).
// A user record without an account must never be visible, so both inserts
// share one database transaction.
func (s *Service) CreateUser(ctx context.Context, email, passwordHash, fullName string) (*entities.User, *entities.Account, error) {
	if exists, err := s.userRepo.ExistsByEmail(ctx, email); err != nil {
		return nil, nil, err
	} else if exists {
		return nil, nil, domainerrors.EmailTaken(email)
	}

	var user *entities.User
	var account *entities.Account

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, domainerrors.DBError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	user = &entities.User{
		Email:          email,
		FullName:       fullName,
		HashedPassword: passwordHash,
		IsActive:       true,
		IsAdmin:        false,
		IsVerified:     false,
		KYCStatus:      entities.KYCNotStarted,
	}
	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	now := time.Now().UTC()
	account = &entities.Account{
		AccountNumber:  accountNumberFor(user.ID, now),
		OwnerID:        user.ID,
		AccountType:    entities.AccountPrimary,
		Balance:        decimal.Zero,
		Currency:       "USD",
		Status:         entities.AccountActive,
		KYCLevel:       entities.KYCLevelBasic,
		IsAdminAccount: false,
	}
	if err := s.accountRepo.Create(ctx, tx, account); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, domainerrors.DBError(err)
	}

	s.logger.Info("user created", "user_id", user.ID, "account_id", account.ID)
	return user, account, nil
}

// Bootstrap ensures the reserved system user and the system-reserve
// treasury account exist, seeding the treasury with a self-paired credit
// entry (spec §6.3, §9's explicit external-injection exception). It is
// idempotent: calling it against an already-bootstrapped database is a
// no-op, matching the re-runnable contract recovered from
// original_source/migrate_system_reserve.py (see SPEC_FULL.md §C).
func (s *Service) Bootstrap(ctx context.Context) error {
	existing, err := s.userRepo.GetByID(ctx, entities.SystemUserID)
	if err == nil && existing != nil {
		s.logger.Debug("system user already bootstrapped", "user_id", entities.SystemUserID)
		return s.ensureReserveAccount(ctx, existing.ID)
	}
	if err != nil && !domainerrors.Is(err, domainerrors.CodeUserNotFound) {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domainerrors.DBError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	sysUser := &entities.User{
		Email:      entities.SystemUserEmail,
		FullName:   "System Reserve",
		IsActive:   true,
		IsAdmin:    true,
		IsVerified: true,
		KYCStatus:  entities.KYCApproved,
	}
	if err := s.userRepo.Create(ctx, tx, sysUser); err != nil {
		tx.Rollback()
		return err
	}
	if sysUser.ID != entities.SystemUserID {
		tx.Rollback()
		return domainerrors.New(domainerrors.CodeOrphanedUser, "system user did not receive reserved id 1; database sequence must be primed before first run")
	}

	reserve := &entities.Account{
		AccountNumber:  entities.SystemReserveAccountNumber,
		OwnerID:        sysUser.ID,
		AccountType:    entities.AccountTreasury,
		Balance:        entities.SystemReserveSeedAmount,
		Currency:       "USD",
		Status:         entities.AccountActive,
		KYCLevel:       entities.KYCLevelFull,
		IsAdminAccount: true,
	}
	if err := s.accountRepo.Create(ctx, tx, reserve); err != nil {
		tx.Rollback()
		return err
	}

	seedTx := &entities.Transaction{
		UserID:          sysUser.ID,
		AccountID:       reserve.ID,
		Amount:          entities.SystemReserveSeedAmount,
		TransactionType: entities.TransactionSystemSeed,
		Direction:       entities.DirectionCredit,
		Status:          entities.TransactionCompleted,
		Description:     "system reserve seed",
		KYCStatusAtTime: entities.KYCApproved,
	}
	if err := s.transactionRepo.Create(ctx, tx, seedTx); err != nil {
		tx.Rollback()
		return err
	}

	now := time.Now().UTC()
	// The seed entry's paired debit is against the system user itself — the
	// one deliberate exception to the pairing rule (spec §9). This is not a
	// reusable self-pairing code path; it exists only here.
	debit := &entities.LedgerEntry{
		UserID: sysUser.ID, EntryType: entities.EntryDebit, Amount: entities.SystemReserveSeedAmount,
		TransactionID: seedTx.ID, Description: "system reserve seed (external injection)", Status: entities.EntryPending, CreatedAt: now,
	}
	credit := &entities.LedgerEntry{
		UserID: sysUser.ID, EntryType: entities.EntryCredit, Amount: entities.SystemReserveSeedAmount,
		TransactionID: seedTx.ID, Description: "system reserve seed (external injection)", Status: entities.EntryPending, CreatedAt: now,
	}
	if err := s.ledgerRepo.CreateEntry(ctx, tx, debit); err != nil {
		tx.Rollback()
		return domainerrors.DBError(err)
	}
	if err := s.ledgerRepo.CreateEntry(ctx, tx, credit); err != nil {
		tx.Rollback()
		return domainerrors.DBError(err)
	}
	if err := s.ledgerRepo.SetRelatedEntry(ctx, tx, debit.ID, credit.ID); err != nil {
		tx.Rollback()
		return domainerrors.DBError(err)
	}
	if err := s.ledgerRepo.SetRelatedEntry(ctx, tx, credit.ID, debit.ID); err != nil {
		tx.Rollback()
		return domainerrors.DBError(err)
	}

	if err := tx.Commit(); err != nil {
		return domainerrors.DBError(err)
	}

	s.logger.Info("system reserve bootstrapped", "user_id", sysUser.ID, "account_id", reserve.ID, "seed_amount", entities.SystemReserveSeedAmount.String())
	return nil
}

func (s *Service) ensureReserveAccount(ctx context.Context, systemUserID int64) error {
	_, err := s.accountRepo.GetByAccountNumber(ctx, entities.SystemReserveAccountNumber)
	if err == nil {
		return nil
	}
	if !domainerrors.Is(err, domainerrors.CodeAccountNotFound) {
		return err
	}
	return domainerrors.New(domainerrors.CodeOrphanedUser, "system user exists without a reserve account; manual repair required")
}

// VerificationReport summarizes invariant-verifier findings (spec §4.3,
// §6.2's VerifyInvariants operation).
type VerificationReport struct {
	OrphanedUsers         []int64
	AccountsWithoutOwner   []int64
	TransactionsNullBound  int
	UsersWithEmptyKYC      []int64
}

// VerifyInvariants scans for the four classes of defect spec §4.3 names.
// It is read-only; Repair performs the corresponding fixes.
func (s *Service) VerifyInvariants(ctx context.Context, userIDs []int64) (*VerificationReport, error) {
	report := &VerificationReport{}

	for _, id := range userIDs {
		count, err := s.accountRepo.CountByOwner(ctx, id)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			report.OrphanedUsers = append(report.OrphanedUsers, id)
		}
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u.KYCStatus == "" {
			report.UsersWithEmptyKYC = append(report.UsersWithEmptyKYC, id)
		}
	}

	nullBound, err := s.transactionRepo.CountWithNullBinding(ctx)
	if err != nil {
		return nil, err
	}
	report.TransactionsNullBound = nullBound

	orphanAccounts, err := s.accountRepo.ListOrphanIDs(ctx)
	if err != nil {
		return nil, err
	}
	report.AccountsWithoutOwner = orphanAccounts

	return report, nil
}

// Repair creates a primary account for each orphaned user and sets
// kyc_status=not_started where missing (spec §4.3). It is idempotent: a
// second call against an already-repaired report is a no-op, per the
// contract recovered from original_source/audit_and_fix_accounts.py (see
// SPEC_FULL.md §C).
func (s *Service) Repair(ctx context.Context, report *VerificationReport) error {
	for _, userID := range report.OrphanedUsers {
		count, err := s.accountRepo.CountByOwner(ctx, userID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		now := time.Now().UTC()
		account := &entities.Account{
			AccountNumber:  accountNumberFor(userID, now),
			OwnerID:        userID,
			AccountType:    entities.AccountPrimary,
			Balance:        decimal.Zero,
			Currency:       "USD",
			Status:         entities.AccountActive,
			KYCLevel:       entities.KYCLevelBasic,
			IsAdminAccount: false,
		}
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			return s.accountRepo.Create(ctx, tx, account)
		})
		if err != nil {
			return err
		}
		s.logger.Critical("repaired orphaned user", "user_id", userID, "created_account_id", account.ID)
	}

	for _, userID := range report.UsersWithEmptyKYC {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.KYCStatus != "" {
			continue
		}
		u.KYCStatus = entities.KYCNotStarted
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			return s.userRepo.Update(ctx, tx, u)
		})
		if err != nil {
			return err
		}
		s.logger.Critical("repaired user with empty kyc_status", "user_id", userID)
	}

	return nil
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domainerrors.DBError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
