package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"BoardRelay/internal/config"
	"BoardRelay/internal/infrastructure/parser"
	"BoardRelay/internal/infrastructure/scheduler"
	"BoardRelay/internal/infrastructure/storage"
	"BoardRelay/internal/infrastructure/telegram"
	"BoardRelay/internal/logging"
	"BoardRelay/internal/ports"
	"BoardRelay/internal/scanner"
	"BoardRelay/internal/usecase"
)

// Application wires configs to the pipeline and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	messenger ports.Messenger
	db        *sql.DB
}

// New builds a runnable application instance from resolved configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	fetcher := parser.NewFetcher(&http.Client{Timeout: cfg.Fetch.Timeout()}, parser.FetchOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
		Timeout:        cfg.Fetch.Timeout(),
	})

	registry := scanner.NewRegistry()
	registry.Register(parser.NewGnuboardScanner(fetcher, baseLogger.With("component", "scanner.gnuboard")))

	source := parser.NewBoardSource(registry, cfg.Site, cfg.Board, baseLogger.With("component", "source"))

	extractor := parser.NewContentExtractor(fetcher, parser.ExtractOptions{
		SummaryChars:      cfg.Extract.SummaryChars,
		ExcludeSubstrings: cfg.Extract.ExcludeSubstrings,
		PlaceholderIcons:  cfg.Extract.PlaceholderIcons,
		DropFirstImage:    cfg.Extract.DropFirstImage,
	}, baseLogger.With("component", "extractor"))

	ledger, err := storage.NewFileLedger(cfg.Ledger.Path, cfg.ResetSeen)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	messenger := telegram.NewClient(
		cfg.Notifications.Telegram.APIURL,
		cfg.Notifications.Telegram.BotToken,
		cfg.Notifications.Telegram.ChatID,
		cfg.Delivery.SendInterval(),
		baseLogger.With("component", "telegram"),
	)

	deliverer := usecase.NewDeliverer(messenger, usecase.DeliverOptions{
		BatchLimit:   cfg.Delivery.BatchLimit,
		CaptionChars: cfg.Delivery.CaptionChars,
		EmbedLimit:   cfg.Delivery.EmbedLimit,
	}, baseLogger.With("component", "deliverer"))

	var db *sql.DB
	var deliveryLog ports.DeliveryLog
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}
		deliveryLog = storage.NewPostgresDeliveryLog(db)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:          source,
		Extractor:       extractor,
		Ledger:          ledger,
		Deliverer:       deliverer,
		DeliveryLog:     deliveryLog,
		Logger:          baseLogger.With("component", "pipeline"),
		ForceSendLatest: cfg.ForceSendLatest,
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		messenger: messenger,
		db:        db,
	}, nil
}

// Run executes a single pipeline pass, or keeps rerunning on the configured
// interval until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if a.cfg.Heartbeat.Enabled {
		if err := a.messenger.SendText(ctx, a.cfg.Heartbeat.Text); err != nil {
			a.logger.Warn("heartbeat failed", "error", err)
		}
	}

	interval := a.cfg.Scheduler.Interval()
	if interval <= 0 {
		return a.pipeline.Run(ctx)
	}

	runner := usecase.NewRunner(scheduler.NewIntervalScheduler(interval), a.pipeline)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", interval)

	<-ctx.Done()
	return runner.Stop(context.Background())
}

func (a *Application) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
