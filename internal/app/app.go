package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ReadingRoom/internal/api"
	"ReadingRoom/internal/config"
	"ReadingRoom/internal/crawler"
	"ReadingRoom/internal/extract"
	"ReadingRoom/internal/infrastructure/httpfetch"
	"ReadingRoom/internal/infrastructure/imagegen"
	"ReadingRoom/internal/infrastructure/llm"
	"ReadingRoom/internal/infrastructure/parser"
	"ReadingRoom/internal/infrastructure/ratelimit"
	"ReadingRoom/internal/infrastructure/scheduler"
	"ReadingRoom/internal/infrastructure/storage"
	"ReadingRoom/internal/infrastructure/telegram"
	"ReadingRoom/internal/logging"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
	"ReadingRoom/internal/tasks"
	"ReadingRoom/internal/usecase"
)

// MemoryDriver keeps all state in process.
const MemoryDriver = "memory"

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store       ports.Store
	closeStore  func() error
	pipeline    *usecase.Pipeline
	archives    *usecase.ArchiveBuilder
	illustrator *usecase.Illustrator
	scheduler   *usecase.Scheduler
	tasks       *tasks.Manager
}

// New builds the application graph. The store is opened and migrated here.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	metrics.Init()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	fetcher := httpfetch.New(&http.Client{Timeout: cfg.Crawler.Timeout}, cfg.Crawler.UserAgent)
	pageParser := parser.NewReadingRoomParser()
	limiter := ratelimit.New(cfg.Crawler.RequestsPerSecond, 1)

	var textGen ports.TextGenerator = llm.Placeholder{}
	if cfg.ChatGPT.APIKey != "" {
		textGen = llm.NewChatGPTClient(cfg.ChatGPT)
	} else {
		baseLogger.Warn("chatgpt api key not set, using placeholder text generator")
	}

	var imageGen ports.ImageGenerator = imagegen.Placeholder{}
	if cfg.ImageGen.Endpoint != "" {
		imageGen = imagegen.NewClient(cfg.ImageGen.Endpoint, cfg.ImageGen.APIKey)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:        crawler.New(fetcher, pageParser, cfg.Crawler.MaxPages, baseLogger.With("component", "crawler")),
		Extractor:     extract.NewDocumentExtractor(fetcher, pageParser, nil, baseLogger.With("component", "extract")),
		Content:       usecase.NewContentPipeline(textGen),
		Store:         store,
		Limiter:       limiter,
		Notifier:      notifier,
		Logger:        baseLogger.With("component", "pipeline"),
		SearchBaseURL: cfg.Crawler.BaseURL,
		PromptCount:   cfg.Crawler.PromptCount,
		DailyWindow: usecase.Window{
			StartDate: cfg.Scheduler.StartDate,
			EndDate:   cfg.Scheduler.EndDate,
		},
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		store:       store,
		closeStore:  closeStore,
		pipeline:    pipeline,
		archives:    usecase.NewArchiveBuilder(store, fetcher, baseLogger.With("component", "archive")),
		illustrator: usecase.NewIllustrator(store, imageGen, limiter, baseLogger.With("component", "illustrator")),
		scheduler:   usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
		tasks:       tasks.NewManager(pipeline.RunSearch, 1, cfg.Server.TaskTimeout, baseLogger.With("component", "tasks")),
	}, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (ports.Store, func() error, error) {
	if cfg.Driver == MemoryDriver {
		return storage.NewMemoryStore(), func() error { return nil }, nil
	}

	store, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate store: %w", err)
	}
	return store, store.Close, nil
}

// Pipeline exposes the document pipeline for one-shot commands.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Archives exposes the archive builder.
func (a *Application) Archives() *usecase.ArchiveBuilder { return a.archives }

// Illustrator exposes the image filler.
func (a *Application) Illustrator() *usecase.Illustrator { return a.illustrator }

// Store exposes the document store.
func (a *Application) Store() ports.Store { return a.store }

// Handler builds the HTTP API over the application's use cases.
func (a *Application) Handler() http.Handler {
	return api.NewServer(api.Deps{
		Processor:   a.pipeline,
		Archives:    a.archives,
		Illustrator: a.illustrator,
		Tasks:       a.tasks,
		Store:       a.store,
		Logger:      a.logger.With("component", "api"),
	}).Handler()
}

// Serve runs the HTTP API and, when enabled, the daily scheduler until ctx ends.
func (a *Application) Serve(ctx context.Context, withScheduler bool) error {
	if withScheduler {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("daily update scheduled", "cron", a.cfg.Scheduler.CronExpression)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	if err := a.tasks.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("task shutdown", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// RunDaily performs one scheduled crawl immediately.
func (a *Application) RunDaily(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.DailyUpdate(ctx, now)
}

// Close releases the store.
func (a *Application) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}
