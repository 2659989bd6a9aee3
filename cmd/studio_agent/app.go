package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/clinic-studio/internal/audit"
	"github.com/jonathan/clinic-studio/internal/cache"
	"github.com/jonathan/clinic-studio/internal/citations"
	"github.com/jonathan/clinic-studio/internal/config"
	"github.com/jonathan/clinic-studio/internal/db"
	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/feed"
	"github.com/jonathan/clinic-studio/internal/generation"
	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/publish"
	"github.com/jonathan/clinic-studio/internal/server"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/tracing"
)

// errNoBackend is returned by commands that need generation when no API key is set.
var errNoBackend = errors.New("API key is required (set GEMINI_API_KEY or OPENAI_API_KEY, or backend.api_key in the config)")

// offlineClient stands in for the backend in commands that never generate.
type offlineClient struct{}

func (offlineClient) Generate(context.Context, *llm.Request) (*llm.Response, error) {
	return nil, errNoBackend
}

func (offlineClient) GetModel(llm.ModelTier) string { return "" }

func (offlineClient) Close() error { return nil }

// app is the wired studio shared by every command.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     store.Store
	cache     cache.Cache
	generator *generation.Generator
	auditor   *audit.Debouncer
	audits    *server.Broadcaster
	studio    *pipeline.Studio
	citations *citations.Client
	feed      *feed.Client

	closers []func(context.Context) error
}

// appOptions selects what a command needs.
type appOptions struct {
	// Backend requires an API key and a live generation client.
	Backend bool
}

// newApp wires the studio from cfg. Close must be called on success.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close(ctx)
		}
	}()
	a.onClose(func(context.Context) error { log.Sync(); return nil })

	shutdownTracing, err := tracing.Setup(cfg.Trace, os.Stderr)
	if err != nil {
		return nil, err
	}
	a.onClose(shutdownTracing)

	if a.store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return a.store.Close() })

	if a.cache, err = openCache(ctx, cfg); err != nil {
		return nil, err
	}
	if closer, ok := a.cache.(io.Closer); ok {
		a.onClose(func(context.Context) error { return closer.Close() })
	}

	var client llm.Client = offlineClient{}
	if opts.Backend {
		if cfg.Backend.APIKey == "" {
			return nil, errNoBackend
		}
		if client, err = llm.NewClient(ctx, cfg.LLMConfig(), cfg.Backend.APIKey); err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend.Provider, err)
		}
		a.onClose(func(context.Context) error { return client.Close() })
	}

	holder := persona.NewHolder(persona.Default())
	a.generator = generation.New(client, holder,
		generation.WithPolicy(cfg.RetryPolicy()),
		generation.WithLogger(log),
	)

	a.audits = server.NewBroadcaster()
	a.auditor = audit.NewDebouncer(a.generator,
		audit.WithQuietPeriod(cfg.Audit.QuietPeriod),
		audit.WithLogger(log),
		audit.OnResult(a.audits.Publish),
	)
	a.onClose(func(context.Context) error { a.auditor.Close(); return nil })

	drafts := draft.NewManager(a.generator, a.generator,
		draft.WithStore(a.store),
		draft.WithAuditor(a.auditor),
		draft.WithLogger(log),
	)

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	studioOpts := []pipeline.Option{
		pipeline.WithAuditor(a.auditor),
		pipeline.WithPublisher(publisher),
		pipeline.WithStore(a.store),
		pipeline.WithPersona(holder),
		pipeline.WithLogger(log),
	}
	if cfg.CredentialKey != "" {
		sealer, err := store.NewSealer(cfg.CredentialKey)
		if err != nil {
			return nil, fmt.Errorf("failed to derive credential key: %w", err)
		}
		studioOpts = append(studioOpts, pipeline.WithSealer(sealer))
	}
	a.studio = pipeline.New(a.generator, drafts, studioOpts...)
	if err := a.studio.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore studio state: %w", err)
	}

	a.citations = citations.NewClient(
		citations.WithBaseURL(cfg.PubMed.BaseURL),
		citations.WithAPIKey(cfg.PubMed.APIKey),
		citations.WithCache(a.cache),
		citations.WithPolicy(cfg.RetryPolicy()),
		citations.WithLogger(log),
	)
	if cfg.WordPress.BaseURL != "" {
		a.feed = feed.NewClient(cfg.WordPress.BaseURL)
	}
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.log != nil {
			a.log.Warn("Error during shutdown", "error", err)
		}
	}
	a.closers = nil
}

// openStore opens PostgreSQL when a database URL is configured, else bbolt.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
		return database, nil
	}

	if dir := filepath.Dir(cfg.Store.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return store.OpenBolt(cfg.Store.Path)
}

// openCache connects to Redis when configured, else keeps an in-process cache.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Redis.URL == "" {
		return cache.NewMemory(), nil
	}
	return cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
}

// newPublisher builds the three-phase pipeline over the configured image host.
func (a *app) newPublisher(ctx context.Context) (*publish.Pipeline, error) {
	pc := a.cfg.Publish
	httpClient := &http.Client{Timeout: pc.HTTPTimeout}

	var host publish.ImageHost
	switch strings.ToLower(pc.ImageHost) {
	case "gcs":
		gcs, err := publish.NewGCSHost(ctx, publish.GCSConfig{
			Bucket:        pc.GCS.Bucket,
			Prefix:        pc.GCS.Prefix,
			PublicBaseURL: pc.GCS.PublicBaseURL,
			EmulatorHost:  pc.GCS.EmulatorHost,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gcs image host: %w", err)
		}
		a.onClose(func(context.Context) error { return gcs.Close() })
		host = gcs
	default:
		imgbb := publish.NewImgBB(pc.ImgBBEndpoint)
		imgbb.HTTPClient = httpClient
		host = imgbb
	}

	social := publish.NewGraphClient(pc.GraphBaseURL)
	social.HTTPClient = httpClient

	return publish.NewPipeline(host, social,
		publish.WithURLCache(cache.NewURLs(a.cache)),
		publish.WithLogger(a.log),
	), nil
}
