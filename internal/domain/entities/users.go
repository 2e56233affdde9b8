package entities

import (
	"time"
)

// KYCStatus is the closed set of know-your-customer states a user can be in.
type KYCStatus string

const (
	KYCNotStarted KYCStatus = "not_started"
	KYCPending    KYCStatus = "pending"
	KYCSubmitted  KYCStatus = "submitted"
	KYCApproved   KYCStatus = "approved"
	KYCRejected   KYCStatus = "rejected"
)

func (s KYCStatus) Valid() bool {
	switch s {
	case KYCNotStarted, KYCPending, KYCSubmitted, KYCApproved, KYCRejected:
		return true
	}
	return false
}

// SystemUserID is the reserved id of the system/treasury-owning user (spec §3).
const SystemUserID = 1

// SystemUserEmail is the email the bootstrap routine assigns to the reserved
// system user when it does not yet exist.
const SystemUserEmail = "sysreserve@internal.rail"

// User is a registered account holder or the reserved system user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FullName       string    `db:"full_name" json:"full_name"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	IsAdmin        bool      `db:"is_admin" json:"is_admin"`
	IsVerified     bool      `db:"is_verified" json:"is_verified"`
	KYCStatus      KYCStatus `db:"kyc_status" json:"kyc_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks field-level invariants that hold regardless of persistence
// state. It does not check cross-entity invariants (those belong to the
// identity service's invariant verifier).
func (u *User) Validate() error {
	if u.Email == "" {
		return newFieldError("email", "email is required")
	}
	if u.FullName == "" {
		return newFieldError("full_name", "full_name is required")
	}
	if !u.KYCStatus.Valid() {
		return newFieldError("kyc_status", "invalid kyc_status")
	}
	if u.ID == SystemUserID {
		if !u.IsAdmin {
			return newFieldError("is_admin", "system user must be admin")
		}
		if u.KYCStatus != KYCApproved {
			return newFieldError("kyc_status", "system user must be kyc approved")
		}
	}
	return nil
}

// IsSystemUser reports whether this is the reserved treasury-owning user.
func (u *User) IsSystemUser() bool {
	return u.ID == SystemUserID
}
