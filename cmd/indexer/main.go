package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/alerts"
	"github.com/pharmatrace/pt-indexer/internal/config"
	"github.com/pharmatrace/pt-indexer/internal/indexer"
	"github.com/pharmatrace/pt-indexer/internal/ledger"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/providers/jetstream"
	"github.com/pharmatrace/pt-indexer/internal/recall"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "indexer",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Batch Indexer")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	// Run schema migrations
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database schema", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()

	// Initialize ledger client
	ethDialer := adapter.NewEthClientDialer()
	ethClient, err := ethDialer.Dial(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial ledger RPC", zap.Error(err), zap.String("rpc_url", cfg.Ledger.RPCURL))
	}
	defer ethClient.Close()
	ledgerClient := ledger.NewClient(ethClient, cfg.Ledger.ContractAddress, cfg.Ledger.ChunkSize)
	eventSource := ledger.NewSource(ledgerClient, clockAdapter, cfg.Ledger.ChunkSize, cfg.Ledger.PollInterval)

	// Initialize NATS publisher
	natsPublisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, natsJS, jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer natsPublisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS JetStream")

	// Assemble the projection pipeline
	lineageGraph := trace.NewGraph(dataStore)
	recallCascade := recall.NewCascade(dataStore, lineageGraph)
	processor := indexer.NewProcessor(dataStore, jsonAdapter, recallCascade)
	retrier := indexer.NewRetrier(processor, dataStore, jsonAdapter, indexer.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	})
	engine := indexer.NewEngine(indexer.Config{
		ContractAddress: cfg.Ledger.ContractAddress,
		ChainID:         cfg.Ledger.ChainID,
		StartBlock:      cfg.Ledger.StartBlock,
	}, eventSource, ledgerClient, dataStore, retrier)

	// Start the alert dispatcher
	dispatcher := alerts.NewDispatcher(alerts.Config{
		WorkerPoolSize: cfg.Alerts.WorkerPoolSize,
		BatchSize:      cfg.Alerts.BatchSize,
		DrainInterval:  cfg.Alerts.DrainInterval,
		MaxAttempts:    cfg.Alerts.MaxAttempts,
		RetryBaseDelay: cfg.Alerts.RetryBaseDelay,
	}, dataStore, natsPublisher, clockAdapter)

	errCh := make(chan error, 2)
	go func() {
		if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("alert dispatcher: %w", err)
		}
	}()
	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("indexer engine: %w", err)
		}
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err)
		cancel()
	}

	// Let in-flight block application and alert delivery settle
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "dispatcher"))
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Batch Indexer stopped")
}
