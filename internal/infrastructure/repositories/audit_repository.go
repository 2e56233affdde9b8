package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// AuditRepository persists AuditLogEntry rows, append-only. Deliberately
// built on raw *sql.Tx/*sql.DB rather than sqlx, mirroring the teacher's
// own mix of sqlx-backed (ledger_repository.go) and plain database/sql
// (reconciliation_repository.go) repositories in the same package.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, tx *sql.Tx, a *entities.AuditLogEntry) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate audit entry: %w", err)
	}

	detailsJSON, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_log_entries (admin_id, user_id, account_id, action_type, reason, details, status, status_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, query,
		a.AdminID, a.UserID, a.AccountID, a.ActionType, a.Reason, detailsJSON, a.Status, a.StatusMessage, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("create audit entry: %w", err))
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter entities.AuditLogFilter) ([]*entities.AuditLogEntry, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	addCondition := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, arg)
		argPos++
	}

	if filter.AdminID != nil {
		addCondition("admin_id = $%d", *filter.AdminID)
	}
	if filter.UserID != nil {
		addCondition("user_id = $%d", *filter.UserID)
	}
	if filter.ActionType != nil {
		addCondition("action_type = $%d", *filter.ActionType)
	}

	query := `SELECT id, admin_id, user_id, account_id, action_type, reason, details, status, status_message, created_at FROM audit_log_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("list audit entries: %w", err))
	}
	defer rows.Close()

	var results []*entities.AuditLogEntry
	for rows.Next() {
		var a entities.AuditLogEntry
		var detailsJSON []byte
		if err := rows.Scan(&a.ID, &a.AdminID, &a.UserID, &a.AccountID, &a.ActionType, &a.Reason, &detailsJSON, &a.Status, &a.StatusMessage, &a.CreatedAt); err != nil {
			return nil, domainerrors.DBError(fmt.Errorf("scan audit entry: %w", err))
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &a.Details); err != nil {
				return nil, domainerrors.DBError(fmt.Errorf("unmarshal audit details: %w", err))
			}
		}
		results = append(results, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("iterate audit entries: %w", err))
	}
	return results, nil
}
