// Package app initializes and holds the long-lived services of the crawler,
// acting as the composition root for both the one-shot and serve commands.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/blob"
	"github.com/narabid/bid-crawler/internal/browser"
	"github.com/narabid/bid-crawler/internal/clock/system"
	"github.com/narabid/bid-crawler/internal/config"
	"github.com/narabid/bid-crawler/internal/extract"
	"github.com/narabid/bid-crawler/internal/filter"
	"github.com/narabid/bid-crawler/internal/id/uuid"
	"github.com/narabid/bid-crawler/internal/job"
	"github.com/narabid/bid-crawler/internal/oracle"
	"github.com/narabid/bid-crawler/internal/portal"
	"github.com/narabid/bid-crawler/internal/progress"
	"github.com/narabid/bid-crawler/internal/publish"
	"github.com/narabid/bid-crawler/internal/sink"
)

// App holds the shared services for one crawler process.
type App struct {
	Runner      *job.Runner
	Broadcaster *progress.Broadcaster
	logger      *zap.Logger
	cleanups    []func()
}

// Options tweak wiring per command.
type Options struct {
	// ReleaseSessionOnFinish closes the browser when a job ends (one-shot
	// mode). Serve mode keeps the session for subsequent jobs.
	ReleaseSessionOnFinish bool
}

// New wires every service from configuration. It fails fast when a critical
// collaborator cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Broadcaster: progress.NewBroadcaster(logger),
		logger:      logger,
	}

	drv, err := browser.NewChromedpDriver(browser.Config{
		UserAgent:   cfg.Portal.UserAgent,
		NavTimeout:  cfg.Portal.NavTimeout(),
		WaitTimeout: cfg.Portal.WaitTimeout(),
		NavQPS:      cfg.Politeness.NavQPS,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("start browser session: %w", err)
	}
	a.cleanups = append(a.cleanups, func() { _ = drv.Close(context.Background()) })

	resultSink, err := a.buildSink(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	orc, err := a.buildOracle(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	shots, err := a.buildBlob(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wireSubscribers(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	strategy, err := extract.ParseStrategy(cfg.Detail.Strategy)
	if err != nil {
		a.Close()
		return nil, err
	}

	clk := system.New()
	navigator := portal.NewNavigator(drv, cfg.Portal.EntryURL, cfg.Portal.NavRetries, logger)
	searcher := portal.NewSearch(drv, portal.SearchOptions{
		ResultPageSize: cfg.Portal.ResultPageSize,
		ExcludeExpired: cfg.Portal.ExcludeExpired,
	}, logger)
	rows := portal.NewRows(drv, cfg.Portal.MaxRowsPerKeyword, logger)
	fetcher := portal.NewDetailFetcher(cfg.Portal.UserAgent, cfg.Portal.NavTimeout(), logger)
	engine := filter.NewEngine(filter.Policy{
		CategoryTokens:  cfg.Filter.CategoryTokens,
		MaxPostAgeDays:  cfg.Filter.MaxPostAgeDays,
		MinLeadTimeDays: cfg.Filter.MinLeadTimeDays,
	}, clk, logger)
	detailer := extract.New(drv, fetcher, orc, shots, extract.Config{
		Strategy:  strategy,
		MinFields: cfg.Detail.MinFields,
	}, logger)

	deps := job.Deps{
		Navigator:   navigator,
		Searcher:    searcher,
		Rows:        rows,
		Admitter:    engine,
		Detailer:    detailer,
		Sink:        resultSink,
		Broadcaster: a.Broadcaster,
		Clock:       clk,
		IDs:         uuid.NewGenerator(),
	}
	if opts.ReleaseSessionOnFinish {
		deps.ReleaseSession = drv.Close
	}

	a.Runner = job.NewRunner(deps, job.Config{
		MinDelay:           cfg.Politeness.MinDelay(),
		MaxDelay:           cfg.Politeness.MaxDelay(),
		CheckpointInterval: cfg.Job.CheckpointInterval(),
	}, logger)
	return a, nil
}

// Close releases every service in reverse initialization order.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

func (a *App) buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (bid.ResultSink, error) {
	switch cfg.Sink.Provider {
	case "memory":
		return sink.NewMemory(), nil
	case "fs":
		fsSink, err := sink.NewFS(cfg.Sink.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("init fs sink: %w", err)
		}
		return fsSink, nil
	case "postgres":
		pgSink, err := sink.NewPostgres(ctx, cfg.Sink.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		a.cleanups = append(a.cleanups, pgSink.Close)
		return pgSink, nil
	default:
		return nil, fmt.Errorf("unknown sink provider: %s", cfg.Sink.Provider)
	}
}

func (a *App) buildOracle(cfg config.Config, logger *zap.Logger) (oracle.Oracle, error) {
	if cfg.Detail.Strategy == "dom_only" {
		return nil, nil
	}
	orc, err := oracle.NewOpenAIOracle(oracle.OpenAIConfig{
		BaseURL: cfg.Oracle.BaseURL,
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.Oracle.Timeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init oracle: %w", err)
	}
	return orc, nil
}

func (a *App) buildBlob(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.Blob.Provider {
	case "noop":
		return blob.Noop{}, nil
	case "local":
		store, err := blob.NewLocal(cfg.Blob.Dir)
		if err != nil {
			return nil, fmt.Errorf("init local blob store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcstorageClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.cleanups = append(a.cleanups, func() { _ = client.Close() })
		store, err := blob.NewGCS(client, cfg.Blob.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob provider: %s", cfg.Blob.Provider)
	}
}

func (a *App) wireSubscribers(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	a.Broadcaster.Register(progress.NewLogSubscriber(logger))

	if !cfg.PubSub.Enabled {
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	sub, err := publish.NewPubSubSubscriber(ctx, client, cfg.PubSub.TopicName, logger)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("init pubsub subscriber: %w", err)
	}
	a.Broadcaster.Register(sub)
	a.cleanups = append(a.cleanups, func() {
		sub.Stop()
		_ = client.Close()
	})
	return nil
}

func gcstorageClient(ctx context.Context) (*gcstorage.Client, error) {
	return gcstorage.NewClient(ctx)
}
