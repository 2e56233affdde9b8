// Package di wires configuration, the database pool, every repository,
// and every domain service into a single Container, mirroring the
// teacher's internal/infrastructure/di/container.go constructor-injection
// style at a scale matched to this engine's much smaller service set.
package di

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/rail-service/ledger-core/internal/domain/services/audit"
	"github.com/rail-service/ledger-core/internal/domain/services/balance"
	"github.com/rail-service/ledger-core/internal/domain/services/fund"
	"github.com/rail-service/ledger-core/internal/domain/services/gate"
	"github.com/rail-service/ledger-core/internal/domain/services/identity"
	"github.com/rail-service/ledger-core/internal/domain/services/ledger"
	"github.com/rail-service/ledger-core/internal/domain/services/reconciliation"
	"github.com/rail-service/ledger-core/internal/infrastructure/config"
	"github.com/rail-service/ledger-core/internal/infrastructure/repositories"
	"github.com/rail-service/ledger-core/internal/scheduler"
	"github.com/rail-service/ledger-core/pkg/logger"
	"github.com/rail-service/ledger-core/pkg/metrics"
)

// Container holds every wired component cmd/server needs.
type Container struct {
	Config *config.Config
	DB     *sql.DB
	Logger *logger.Logger
	Metrics *metrics.Collectors

	UserRepo        *repositories.UserRepository
	AccountRepo     *repositories.AccountRepository
	TransactionRepo *repositories.TransactionRepository
	LedgerRepo      *repositories.LedgerRepository
	AuditRepo       *repositories.AuditRepository

	Ledger         *ledger.Service
	Balance        *balance.Service
	Gate           *gate.Service
	Fund           *fund.Service
	Identity       *identity.Service
	Audit          *audit.Service
	Reconciliation *reconciliation.Service

	Scheduler *scheduler.Scheduler
}

// New builds a fully wired Container from an open database connection and
// loaded configuration. db is assumed to already have migrations applied.
func New(cfg *config.Config, db *sql.DB, log *logger.Logger) *Container {
	sqlxDB := sqlx.NewDb(db, "postgres")

	userRepo := repositories.NewUserRepository(sqlxDB)
	accountRepo := repositories.NewAccountRepository(sqlxDB)
	transactionRepo := repositories.NewTransactionRepository(sqlxDB)
	ledgerRepo := repositories.NewLedgerRepository(sqlxDB)
	auditRepo := repositories.NewAuditRepository(db)

	metricsCollectors := metrics.New(prometheus.DefaultRegisterer)

	ledgerSvc := ledger.New(ledgerRepo, transactionRepo, log)
	balanceSvc := balance.New(ledgerRepo, accountRepo, transactionRepo)
	gateSvc := gate.New(userRepo, accountRepo, balanceSvc.UserBalance, gate.AlwaysPass)
	auditSvc := audit.New(auditRepo, userRepo, accountRepo)
	fundSvc := fund.New(db, gateSvc, ledgerSvc, auditSvc, userRepo, accountRepo, transactionRepo, log, metricsCollectors)
	identitySvc := identity.New(db, userRepo, accountRepo, ledgerRepo, transactionRepo, log)
	reconciliationSvc := reconciliation.New(db, balanceSvc, accountRepo, auditSvc, log, metricsCollectors)

	sched := scheduler.New(cron.New(), log)
	reconcileSpec := "@every " + cfg.ReconciliationInterval.String()
	if err := sched.RegisterReconciliation(reconcileSpec, func(ctx context.Context) error {
		ownerIDs, err := userRepo.ListAllIDs(ctx)
		if err != nil {
			return err
		}
		report, err := reconciliationSvc.Reconcile(ctx, ownerIDs)
		if err != nil {
			return err
		}
		if len(report.Exceptions) > 0 {
			log.Warn("reconciliation found exceptions", "count", len(report.Exceptions))
		}
		return nil
	}); err != nil {
		log.Error("failed to register reconciliation job", "error", err.Error())
	}
	if err := sched.RegisterInvariantVerification("0 3 * * *", func(ctx context.Context) error {
		ownerIDs, err := userRepo.ListAllIDs(ctx)
		if err != nil {
			return err
		}
		report, err := identitySvc.VerifyInvariants(ctx, ownerIDs)
		if err != nil {
			return err
		}
		if len(report.OrphanedUsers) > 0 || len(report.UsersWithEmptyKYC) > 0 || report.TransactionsNullBound > 0 || len(report.AccountsWithoutOwner) > 0 {
			log.Critical("invariant verification found violations",
				"orphaned_users", len(report.OrphanedUsers), "empty_kyc_users", len(report.UsersWithEmptyKYC),
				"null_bound_transactions", report.TransactionsNullBound, "accounts_without_owner", len(report.AccountsWithoutOwner))
			return identitySvc.Repair(ctx, report)
		}
		return nil
	}); err != nil {
		log.Error("failed to register invariant verification job", "error", err.Error())
	}

	return &Container{
		Config: cfg, DB: db, Logger: log, Metrics: metricsCollectors,
		UserRepo: userRepo, AccountRepo: accountRepo, TransactionRepo: transactionRepo, LedgerRepo: ledgerRepo, AuditRepo: auditRepo,
		Ledger: ledgerSvc, Balance: balanceSvc, Gate: gateSvc, Fund: fundSvc, Identity: identitySvc, Audit: auditSvc, Reconciliation: reconciliationSvc,
		Scheduler: sched,
	}
}
