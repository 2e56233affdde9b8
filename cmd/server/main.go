package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/rail-service/ledger-core/internal/domain/services/fund"
	"github.com/rail-service/ledger-core/internal/infrastructure/config"
	"github.com/rail-service/ledger-core/internal/infrastructure/database"
	"github.com/rail-service/ledger-core/internal/infrastructure/di"
	"github.com/rail-service/ledger-core/pkg/graceful"
	"github.com/rail-service/ledger-core/pkg/logger"
	"github.com/rail-service/ledger-core/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	tracingCfg := tracing.Config{
		Enabled:      cfg.Environment != "test",
		CollectorURL: "localhost:4317",
		Environment:  cfg.Environment,
		SampleRate:   1.0,
	}
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingCfg, log.Desugar())
	if err != nil {
		log.Error("failed to initialize tracing", "error", err.Error())
	} else {
		defer tracingShutdown(context.Background())
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		panic(err)
	}

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Error("failed to run migrations", "error", err.Error())
		panic(err)
	}

	container := di.New(cfg, db, log)

	if err := container.Identity.Bootstrap(context.Background()); err != nil {
		log.Error("failed to bootstrap system reserve", "error", err.Error())
		panic(err)
	}

	container.Scheduler.Start()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := buildRouter(container)

	server := &http.Server{
		Addr:         ":8080",
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownManager := graceful.NewShutdownManager(server, db, log)
	shutdownManager.Register(container.Scheduler)

	go func() {
		log.Info("starting server", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped unexpectedly", "error", err.Error())
		}
	}()

	shutdownManager.WaitForShutdown()
}

// buildRouter is a thin HTTP adapter over the core operation surface (spec
// §6.2). It exists only to demonstrate how an external API layer would
// call into the engine; it is not the system's authentication or
// authorization boundary.
func buildRouter(container *di.Container) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.HealthCheck(container.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/deposits", func(c *gin.Context) { handleDeposit(c, container) })
		v1.POST("/withdrawals", func(c *gin.Context) { handleWithdrawal(c, container) })
		v1.POST("/transfers", func(c *gin.Context) { handleTransfer(c, container) })
		v1.GET("/users/:id/balance", func(c *gin.Context) { handleUserBalance(c, container) })
	}
	return router
}

type moneyRequest struct {
	ActorUserID    int64  `json:"actor_user_id" binding:"required"`
	AccountID      int64  `json:"account_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

func handleDeposit(c *gin.Context, container *di.Container) {
	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	result, err := container.Fund.Deposit(c.Request.Context(), req.ActorUserID, req.AccountID, amount, req.Description, req.IdempotencyKey)
	respondResult(c, result, err)
}

func handleWithdrawal(c *gin.Context, container *di.Container) {
	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	result, err := container.Fund.Withdrawal(c.Request.Context(), req.ActorUserID, req.AccountID, amount, req.Description, req.IdempotencyKey)
	respondResult(c, result, err)
}

type transferRequest struct {
	ActorUserID     int64  `json:"actor_user_id" binding:"required"`
	SourceAccountID int64  `json:"source_account_id" binding:"required"`
	TargetAccountID int64  `json:"target_account_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Description     string `json:"description"`
	IdempotencyKey  string `json:"idempotency_key"`
}

func handleTransfer(c *gin.Context, container *di.Container) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	result, err := container.Fund.Transfer(c.Request.Context(), req.ActorUserID, req.SourceAccountID, req.TargetAccountID, amount, req.Description, req.IdempotencyKey)
	respondResult(c, result, err)
}

func handleUserBalance(c *gin.Context, container *di.Container) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	balance, err := container.Balance.UserBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	held, err := container.Balance.HeldFunds(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance.String(), "held_funds": held.String()})
}

func respondResult(c *gin.Context, result *fund.Result, err error) {
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": result.Transaction.ID,
		"status":         result.Transaction.Status,
	})
}
