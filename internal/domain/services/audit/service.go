// Package audit implements the admin action log (spec §4.6): every
// privileged operation (fund, reverse, freeze, KYC decision, ...) is
// recorded with the acting admin, the affected subject, and an outcome.
// Grounded on the teacher's services/audit/service.go Log/List split.
package audit

import (
	"context"
	"database/sql"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
	"github.com/rail-service/ledger-core/internal/domain/repositories"
)

type Service struct {
	auditRepo   repositories.AuditRepository
	userRepo    repositories.UserRepository
	accountRepo repositories.AccountRepository
}

func New(auditRepo repositories.AuditRepository, userRepo repositories.UserRepository, accountRepo repositories.AccountRepository) *Service {
	return &Service{auditRepo: auditRepo, userRepo: userRepo, accountRepo: accountRepo}
}

// Log validates and persists one audit entry inside the caller's
// transaction (spec §4.6). It enforces that the admin is real and
// privileged, the subject exists, and an account (if named) either
// belongs to the subject or is a shared admin account.
func (s *Service) Log(ctx context.Context, tx *sql.Tx, adminID, userID int64, accountID *int64, actionType entities.AuditActionType, reason string, details map[string]interface{}, status entities.AuditStatus, statusMessage string) (*entities.AuditLogEntry, error) {
	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, domainerrors.NotAdmin(adminID)
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if accountID != nil {
		acc, err := s.accountRepo.GetByID(ctx, *accountID)
		if err != nil {
			return nil, err
		}
		if acc.OwnerID != userID && !acc.IsAdminAccount {
			return nil, domainerrors.OwnershipViolation(*accountID, userID)
		}
	}

	entry := &entities.AuditLogEntry{
		AdminID:       adminID,
		UserID:        userID,
		AccountID:     accountID,
		ActionType:    actionType,
		Reason:        reason,
		Details:       details,
		Status:        status,
		StatusMessage: statusMessage,
	}
	if err := s.auditRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListAuditLogs returns audit entries newest-first, filtered and paginated
// per spec §4.6/§6.2.
func (s *Service) ListAuditLogs(ctx context.Context, filter entities.AuditLogFilter) ([]*entities.AuditLogEntry, error) {
	return s.auditRepo.List(ctx, filter)
}
