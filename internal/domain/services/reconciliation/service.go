// Package reconciliation implements the periodic drift check between the
// cached Account.balance column and the ledger-derived balance (spec
// §4.7). Grounded on the teacher's services/reconciliation/service.go
// Reconcile/repair split, generalized to the ledger-backed balance
// projection and to record repairs as audit entries rather than a
// dedicated reconciliation table.
package reconciliation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rail-service/ledger-core/internal/domain/entities"
	"github.com/rail-service/ledger-core/internal/domain/repositories"
	"github.com/rail-service/ledger-core/internal/domain/services/audit"
	"github.com/rail-service/ledger-core/internal/domain/services/balance"
	"github.com/rail-service/ledger-core/internal/infrastructure/database"
	"github.com/rail-service/ledger-core/pkg/logger"
	"github.com/rail-service/ledger-core/pkg/metrics"
)

type Service struct {
	db          *sql.DB
	balance     *balance.Service
	accountRepo repositories.AccountRepository
	audit       *audit.Service
	logger      *logger.Logger
	metrics     *metrics.Collectors
}

func New(db *sql.DB, balanceSvc *balance.Service, accountRepo repositories.AccountRepository, auditSvc *audit.Service, log *logger.Logger, m *metrics.Collectors) *Service {
	return &Service{db: db, balance: balanceSvc, accountRepo: accountRepo, audit: auditSvc, logger: log, metrics: m}
}

// Exception is one account whose cached balance has drifted from the
// ledger-derived balance beyond tolerance.
type Exception struct {
	AccountID  int64
	Stored     string
	Calculated string
	Difference string
}

// Report is Reconcile's result: every account scanned, and the subset
// that exceeded tolerance.
type Report struct {
	AccountsScanned int
	Exceptions      []Exception
}

// Reconcile scans every account owned by ownerIDs, computing drift for
// each (spec §4.2, §4.7, §8 property 3). It never mutates the ledger;
// Repair is the only operation allowed to rewrite Account.balance.
func (s *Service) Reconcile(ctx context.Context, ownerIDs []int64) (*Report, error) {
	report := &Report{}
	for _, ownerID := range ownerIDs {
		accounts, err := s.accountRepo.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		for _, acc := range accounts {
			report.AccountsScanned++
			stored, calculated, difference, within, err := s.balance.Drift(ctx, acc.ID)
			if err != nil {
				return nil, err
			}
			s.metrics.ReconciliationDrift.WithLabelValues(string(acc.AccountType)).Observe(difference.InexactFloat64())
			if !within {
				s.metrics.ReconciliationExceptions.Inc()
				report.Exceptions = append(report.Exceptions, Exception{
					AccountID: acc.ID, Stored: stored.String(), Calculated: calculated.String(), Difference: difference.String(),
				})
				s.logger.Warn("reconciliation drift exceeds tolerance", "account_id", acc.ID, "stored", stored.String(), "calculated", calculated.String())
			}
		}
	}
	return report, nil
}

// Repair sets Account.balance to the ledger-derived value for every
// exception in report, and records an audit entry per repair performed
// by adminID (spec §4.7). The ledger itself is never modified.
func (s *Service) Repair(ctx context.Context, adminID int64, report *Report) error {
	for _, exc := range report.Exceptions {
		err := database.WithTransaction(ctx, s.db, sql.LevelReadCommitted, func(tx *sql.Tx) error {
			acc, err := s.accountRepo.GetByIDForUpdate(ctx, tx, exc.AccountID)
			if err != nil {
				return err
			}
			_, calculated, _, within, err := s.balance.Drift(ctx, exc.AccountID)
			if err != nil {
				return err
			}
			if within {
				return nil
			}
			if err := s.accountRepo.UpdateBalance(ctx, tx, acc.ID, calculated); err != nil {
				return err
			}
			_, err = s.audit.Log(ctx, tx, adminID, acc.OwnerID, &acc.ID, entities.AuditReconcileBalance,
				fmt.Sprintf("reconciliation repair: stored=%s calculated=%s", exc.Stored, exc.Calculated),
				map[string]interface{}{"stored": exc.Stored, "calculated": exc.Calculated, "difference": exc.Difference},
				entities.AuditSuccess, "")
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
