package entities

import "time"

// AuditActionType is the closed enum of privileged actions the audit log may
// record (spec §4.6). An unknown value must be rejected at write time.
type AuditActionType string

const (
	AuditFund               AuditActionType = "fund"
	AuditReverseTransaction AuditActionType = "reverse_transaction"
	AuditFreeze             AuditActionType = "freeze"
	AuditUnfreeze           AuditActionType = "unfreeze"
	AuditApproveKYC         AuditActionType = "approve_kyc"
	AuditRejectKYC          AuditActionType = "reject_kyc"
	AuditResetPassword      AuditActionType = "reset_password"
	AuditCreateUser         AuditActionType = "create_user"
	AuditDeleteUser         AuditActionType = "delete_user"
	AuditSetAdmin           AuditActionType = "set_admin"
	// AuditReconcileBalance is an implementer extension (spec §4.7 allows
	// extending the enum) recording a reconciliation repair.
	AuditReconcileBalance AuditActionType = "reconcile_balance"
)

func (a AuditActionType) Valid() bool {
	switch a {
	case AuditFund, AuditReverseTransaction, AuditFreeze, AuditUnfreeze,
		AuditApproveKYC, AuditRejectKYC, AuditResetPassword, AuditCreateUser,
		AuditDeleteUser, AuditSetAdmin, AuditReconcileBalance:
		return true
	}
	return false
}

// AuditStatus records the outcome of the audited action.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailed  AuditStatus = "failed"
	AuditPending AuditStatus = "pending"
)

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditSuccess, AuditFailed, AuditPending:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of a privileged action (spec §3,
// §4.6). It is written in the same database transaction as the effect it
// describes and is never updated or deleted.
type AuditLogEntry struct {
	ID            int64                  `db:"id" json:"id"`
	AdminID       int64                  `db:"admin_id" json:"admin_id"`
	UserID        int64                  `db:"user_id" json:"user_id"`
	AccountID     *int64                 `db:"account_id" json:"account_id,omitempty"`
	ActionType    AuditActionType        `db:"action_type" json:"action_type"`
	Reason        string                 `db:"reason" json:"reason"`
	Details       map[string]interface{} `db:"-" json:"details,omitempty"`
	Status        AuditStatus            `db:"status" json:"status"`
	StatusMessage string                 `db:"status_message" json:"status_message,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}

func (a *AuditLogEntry) Validate() error {
	if a.AdminID == 0 {
		return newFieldError("admin_id", "admin_id is required")
	}
	if a.UserID == 0 {
		return newFieldError("user_id", "user_id is required")
	}
	if !a.ActionType.Valid() {
		return newFieldError("action_type", "unknown action_type")
	}
	if !a.Status.Valid() {
		return newFieldError("status", "invalid status")
	}
	return nil
}

// AuditLogFilter is the query shape ListAuditLogs accepts (spec §6.2).
type AuditLogFilter struct {
	AdminID    *int64
	UserID     *int64
	ActionType *AuditActionType
	Limit      int
	Skip       int
}
