// Package repositories implements the domain repository interfaces against
// Postgres, following the teacher's ledger_repository.go pattern: sqlx with
// positional placeholders, pq.Error inspected for unique_violation (23505).
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	domainerrors "github.com/rail-service/ledger-core/internal/domain/errors"
)

// UserRepository persists User aggregates via sqlx.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, u *entities.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validate user: %w", err)
	}

	query := `
		INSERT INTO users (email, full_name, hashed_password, is_active, is_admin, is_verified, kyc_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	err := tx.QueryRowContext(ctx, query,
		u.Email, u.FullName, u.HashedPassword, u.IsActive, u.IsAdmin, u.IsVerified, u.KYCStatus, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainerrors.EmailTaken(u.Email)
		}
		return domainerrors.DBError(fmt.Errorf("create user: %w", err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `
		SELECT id, email, full_name, hashed_password, is_active, is_admin, is_verified, kyc_status, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u entities.User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.UserNotFound(id)
		}
		return nil, domainerrors.DBError(fmt.Errorf("get user: %w", err))
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query := `
		SELECT id, email, full_name, hashed_password, is_active, is_admin, is_verified, kyc_status, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u entities.User
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.New(domainerrors.CodeUserNotFound, "user not found by email")
		}
		return nil, domainerrors.DBError(fmt.Errorf("get user by email: %w", err))
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, tx *sql.Tx, u *entities.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("validate user: %w", err)
	}
	query := `
		UPDATE users SET full_name=$1, is_active=$2, is_admin=$3, is_verified=$4, kyc_status=$5, updated_at=$6
		WHERE id = $7
	`
	u.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, query, u.FullName, u.IsActive, u.IsAdmin, u.IsVerified, u.KYCStatus, u.UpdatedAt, u.ID)
	if err != nil {
		return domainerrors.DBError(fmt.Errorf("update user: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domainerrors.UserNotFound(u.ID)
	}
	return nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err != nil {
		return false, domainerrors.DBError(fmt.Errorf("check email exists: %w", err))
	}
	return exists, nil
}

// ListAllIDs returns every user id, ascending. Used by the scheduler to
// scope reconciliation and invariant verification sweeps (spec §4.3, §4.7).
func (r *UserRepository) ListAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, domainerrors.DBError(fmt.Errorf("list user ids: %w", err))
	}
	return ids, nil
}
