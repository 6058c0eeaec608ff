package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	accountingapp "github.com/openbooks/backend/internal/application/accounting"
	catalogapp "github.com/openbooks/backend/internal/application/catalog"
	stockapp "github.com/openbooks/backend/internal/application/stock"
	tradeapp "github.com/openbooks/backend/internal/application/trade"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/internal/infrastructure/config"
	"github.com/openbooks/backend/internal/infrastructure/event"
	"github.com/openbooks/backend/internal/infrastructure/logger"
	"github.com/openbooks/backend/internal/infrastructure/persistence"
	"github.com/openbooks/backend/internal/interfaces/http/handler"
	"github.com/openbooks/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting openbooks backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	stockItemRepo := persistence.NewGormStockItemRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	reservationRepo := persistence.NewGormStockReservationRepository(db.DB)
	accountRepo := persistence.NewGormLedgerAccountRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)

	// Event bus with an audit handler for every domain event
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLoggingHandler(log))

	// Application services
	catalogService := catalogapp.NewCatalogService(productRepo, warehouseRepo)
	accountService := accountingapp.NewAccountService(accountRepo, journalRepo)
	stockService := stockapp.NewStockService(stockItemRepo, movementRepo, valueobject.Currency(cfg.Posting.Currency))

	reservationService := stockapp.NewReservationService(stockItemRepo, reservationRepo, cfg.Reservation.DefaultTTL)
	reservationService.SetEventPublisher(eventBus)
	reservationService.SetLogger(log)

	policy, err := postingPolicy(cfg.Posting)
	if err != nil {
		log.Fatal("Invalid posting configuration", zap.Error(err))
	}
	coordinator := tradeapp.NewTransactionCoordinator(persistence.NewGormTransactionScope(db.DB), policy)
	coordinator.SetEventPublisher(eventBus)
	coordinator.SetLogger(log)

	// Background sweep releasing expired reservations
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reservation.AutoReleaseEnabled {
		go runExpirySweep(rootCtx, reservationService, cfg.Reservation, log)
		log.Info("Reservation expiry sweep enabled",
			zap.Duration("interval", cfg.Reservation.CheckInterval),
			zap.Int("batch_size", cfg.Reservation.SweepBatchSize),
		)
	}

	// HTTP handlers
	transactionHandler := handler.NewTransactionHandler(coordinator, accountService)
	stockHandler := handler.NewStockHandler(stockService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	accountHandler := handler.NewAccountHandler(accountService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	systemHandler := handler.NewSystemHandler(db, cfg.App.Name)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handler.SetupValidator(); err != nil {
		log.Fatal("Failed to register validations", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	systemHandler.RegisterRoutes(engine)

	router.New(engine, router.WithAPIVersion("v1")).
		Register(transactionHandler, stockHandler, reservationHandler, accountHandler, catalogHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// postingPolicy builds the coordinator policy from configuration
func postingPolicy(cfg config.PostingConfig) (tradeapp.Policy, error) {
	policy := tradeapp.DefaultPolicy()
	if cfg.TaxRate != "" {
		rate, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return tradeapp.Policy{}, err
		}
		policy.TaxRate = rate
	}
	policy.AllowNegativeStock = cfg.AllowNegativeStock
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		policy.RetryBaseDelay = cfg.RetryBaseDelay
	}
	return policy, nil
}

// runExpirySweep periodically releases reservations whose TTL lapsed
func runExpirySweep(ctx context.Context, svc *stockapp.ReservationService, cfg config.ReservationConfig, log *zap.Logger) {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := svc.ReleaseExpired(ctx, cfg.SweepBatchSize)
			if err != nil {
				log.Error("Reservation expiry sweep failed", zap.Error(err))
				continue
			}
			if stats.TotalExpired > 0 {
				log.Info("Reservation expiry sweep finished",
					zap.Int("expired", stats.TotalExpired),
					zap.Int("released", stats.SuccessReleased),
					zap.Int("failed", stats.FailedReleases),
				)
			}
		}
	}
}
