package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lunarush/crashcore/internal/auth"
	"github.com/lunarush/crashcore/internal/chain"
	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/handler"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
	"github.com/lunarush/crashcore/internal/realtime"
)

// Exit codes, stable for process supervisors:
//
//	0 clean shutdown
//	1 configuration error
//	2 database unavailable or migration failure
//	3 chain RPC unavailable
//	4 ledger invariant violated at startup
const (
	exitOK        = 0
	exitConfig    = 1
	exitDatabase  = 2
	exitChain     = 3
	exitInvariant = 4
)

const (
	reconcileInterval = 60 * time.Second
	drainTimeout      = 90 * time.Second
	replayRingSize    = 1024
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- configuration ---
	cfg, err := infra.LoadConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		return exitConfig
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return exitConfig
	}

	// --- database ---
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		return exitDatabase
	}
	defer pool.Close()

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		logger.Error("migrations failed", "error", err)
		return exitDatabase
	}
	logger.Info("database ready")

	// --- chain ---
	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainID, logger)
	if err != nil {
		logger.Error("chain rpc unavailable", "error", err)
		return exitChain
	}
	defer chainClient.Close()
	logger.Info("chain rpc connected", "chain_id", chainClient.ChainID().String())

	// --- policy and ledger ---
	registry := prometheus.NewRegistry()
	metrics := infra.NewMetrics(registry)

	emergency := policy.NewEmergency(logger)
	emergency.OnChange(func(active bool) {
		if active {
			metrics.EmergencyMode.Set(1)
		} else {
			metrics.EmergencyMode.Set(0)
		}
	})

	store := ledger.NewStore(pool)
	reconciler := ledger.NewReconciler(store, reconcileInterval, emergency.Trip, logger)

	// A broken ledger must never serve traffic.
	if err := reconciler.RunOnce(ctx); err != nil {
		logger.Error("startup reconciliation failed", "error", err)
		return exitDatabase
	}
	if emergency.Active() {
		logger.Error("ledger invariant violated at startup", "reason", emergency.Reason())
		return exitInvariant
	}

	if refunded, err := store.RecoverOrphanedStakes(ctx, logger); err != nil {
		logger.Error("stake recovery failed", "error", err)
		return exitDatabase
	} else if refunded > 0 {
		logger.Warn("recovered stakes from an abandoned round", "count", refunded)
	}

	solvency := policy.NewSolvency(cfg.HotMinWei(), cfg.HotMaxWei(), cfg.LiabilityFactor, logger)

	limits, err := policy.NewLimitsCache(ctx, pool, domain.Limits{
		MinStake:           cfg.MinStakeWei(),
		MaxStake:           cfg.MaxStakeWei(),
		CapMultPPM:         cfg.CapMult,
		LiabilityFactorPct: cfg.LiabilityFactor,
		PerPlayerCooldown:  cfg.PerPlayerCooldown,
		RoundCap:           cfg.RoundCap,
	})
	if err != nil {
		logger.Error("load limits failed", "error", err)
		return exitDatabase
	}

	// --- realtime and engine ---
	hub := realtime.NewHub(replayRingSize, metrics, logger)
	eng := engine.New(engine.Config{
		BetWindow:     time.Duration(cfg.BetWindowSec) * time.Second,
		CashWindow:    time.Duration(cfg.CashWindowSec) * time.Second,
		HouseEdge:     cfg.HouseEdge,
		CashoutBuffer: time.Duration(cfg.CashoutBufferMS) * time.Millisecond,
		TickInterval:  time.Second / time.Duration(cfg.TickRateHz),
	}, store, hub, limits, solvency, emergency, metrics, logger)

	tokens := auth.NewManager(cfg.JWTSecret, 24*time.Hour)
	gateway := realtime.NewGateway(hub, eng, tokens, logger)

	// --- chain workers ---
	dispatcher, err := chain.NewDispatcher(chainClient, store, cfg.HotWalletPrivKey, cfg.PayoutRetries,
		emergency, solvency, metrics, logger)
	if err != nil {
		logger.Error("invalid hot wallet key", "error", err)
		return exitConfig
	}

	// Withdrawals caught mid-broadcast by the last shutdown must be resolved
	// against the chain before the queue is drained again.
	if err := dispatcher.RecoverInFlight(ctx); err != nil {
		logger.Error("withdrawal recovery failed", "error", err)
		return exitChain
	}

	indexer := chain.NewIndexer(chainClient, store, cfg.DepositAddress,
		cfg.ConfirmBlocks, cfg.ReorgBlocks, time.Duration(cfg.PollInterval)*time.Second,
		metrics, logger)

	monitor := chain.NewWalletMonitor(chainClient, dispatcher.HotAddress(), solvency, metrics, logger)

	// --- settlement fan-out ---
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	outbox := infra.NewOutboxPoller(pool, producer, cfg.KafkaTopic, logger)

	// --- run everything ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	reconciler.Start(workerCtx)
	outbox.Start(workerCtx)
	go runWorker(workerCtx, logger, "engine", eng.Run)
	go runWorker(workerCtx, logger, "indexer", indexer.Run)
	go runWorker(workerCtx, logger, "dispatcher", dispatcher.Run)
	go runWorker(workerCtx, logger, "wallet-monitor", monitor.Run)

	router := handler.NewRouter(handler.RouterDeps{
		Config:     cfg,
		Store:      store,
		Engine:     eng,
		Gateway:    gateway,
		Tokens:     tokens,
		Limits:     limits,
		Solvency:   solvency,
		Emergency:  emergency,
		Reconciler: reconciler,
		Chain:      chainClient,
		Indexer:    indexer,
		Dispatcher: dispatcher,
		Registry:   registry,
		Logger:     logger,
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("crashd serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		return exitConfig
	}

	// Drain: finish the in-flight round, then tear down transports.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()
	if err := eng.Drain(drainCtx); err != nil {
		logger.Warn("engine drain incomplete", "error", err)
	}

	hub.CloseAll()
	cancelWorkers()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	logger.Info("crashd stopped")
	return exitOK
}

// runWorker runs a long-lived loop and logs its terminal error. Context
// cancellation is the expected way down.
func runWorker(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker exited", "worker", name, "error", err)
	}
}
