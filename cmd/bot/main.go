package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simaogato/coinfolio-bot/internal/adapter/binance"
	grpcadapter "github.com/simaogato/coinfolio-bot/internal/adapter/grpc"
	"github.com/simaogato/coinfolio-bot/internal/adapter/repository/postgres"
	"github.com/simaogato/coinfolio-bot/internal/adapter/telegram"
	"github.com/simaogato/coinfolio-bot/internal/config"
	"github.com/simaogato/coinfolio-bot/internal/logging"
	"github.com/simaogato/coinfolio-bot/internal/usecase/export"
	"github.com/simaogato/coinfolio-bot/internal/usecase/history"
	"github.com/simaogato/coinfolio-bot/internal/usecase/ledger"
	"github.com/simaogato/coinfolio-bot/internal/usecase/report"
	"github.com/simaogato/coinfolio-bot/internal/usecase/snapshot"
)

const (
	schemaTimeout      = 30 * time.Second
	storeCheckInterval = 30 * time.Second
	pollerStopTimeout  = 30 * time.Second
)

func main() {
	// 1. Load configuration; nothing starts without a bot token and a store
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.NewLogger(cfg.Logging.Level)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Setup Database and schema
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.ConnectOptions{
		Attempts: cfg.Database.ConnectAttempts,
		Backoff:  cfg.ConnectBackoff(),
		Logger:   logger.WithComponent("postgres"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	schemaCtx, schemaCancel := context.WithTimeout(ctx, schemaTimeout)
	err = db.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure schema")
	}
	logger.Info().Msg("Schema ready")

	// 3. Initialize Repositories and the price source
	transactionRepo := postgres.NewTransactionRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)

	prices := binance.NewClient(
		binance.WithBaseURL(cfg.Exchange.BaseURL),
		binance.WithQuoteAsset(cfg.Exchange.QuoteAsset),
		binance.WithTimeout(cfg.ExchangeTimeout()),
		binance.WithRateLimit(cfg.Exchange.RateLimit),
		binance.WithLogger(logger.WithComponent("binance")),
	)

	// 4. Initialize Services (Use Cases)
	ledgerService := ledger.NewLedgerService(transactionRepo, prices, logger.WithComponent("ledger"))
	reportService := report.NewReportService(transactionRepo, prices, logger.WithComponent("report"))
	historyService := history.NewHistoryService(snapshotRepo, cfg.Exchange.QuoteAsset, logger.WithComponent("history"))
	exportService := export.NewExportService(transactionRepo, logger.WithComponent("export"))
	snapshotService := snapshot.NewSnapshotService(transactionRepo, snapshotRepo, prices, logger)

	// 5. Connect to Telegram
	api, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start bot")
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("Connected to Telegram")

	// 6. Start ops gRPC server
	var ops *grpcadapter.OpsServer
	if cfg.Ops.Addr != "" {
		lis, err := net.Listen("tcp", cfg.Ops.Addr)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Ops.Addr).Msg("Failed to listen")
		}

		ops = grpcadapter.NewOpsServer(db, cfg.Ops.Token, logger)
		go func() {
			if err := ops.Serve(lis); err != nil {
				logger.Error().Err(err).Msg("Ops server failed")
			}
		}()
		go ops.WatchStore(ctx, storeCheckInterval)
		ops.MarkReady()
	}

	// 7. Start the snapshot scheduler and the update loop
	go snapshotService.Run(ctx, cfg.SnapshotInterval())

	sessions := telegram.NewSessionStore(cfg.SessionTTL())
	controller := telegram.NewController(api, telegram.Services{
		Ledger:  ledgerService,
		Reports: reportService,
		History: historyService,
		Export:  exportService,
	}, sessions, cfg.Exchange.QuoteAsset, logger)
	poller := telegram.NewPoller(api, controller, sessions, cfg.Bot.Workers, logger)

	pollerDone := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(pollerDone)
	}()

	// Graceful shutdown
	waitForShutdown(cancel, ops, pollerDone, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT, stops background work and
// drains in-flight updates
func waitForShutdown(cancel context.CancelFunc, ops *grpcadapter.OpsServer, pollerDone <-chan struct{}, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	cancel()

	select {
	case <-pollerDone:
	case <-time.After(pollerStopTimeout):
		logger.Warn().Msg("Timed out waiting for in-flight updates")
	}

	if ops != nil {
		ops.Stop()
	}
	logger.Info().Msg("Bot stopped")
}
