package app

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/discovery"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/httpclient"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/news"
	"github.com/deusflow/newsdigest/internal/ratelimit"
	"github.com/deusflow/newsdigest/internal/render"
	"github.com/deusflow/newsdigest/internal/rss"
	"github.com/deusflow/newsdigest/internal/scraper"
	"github.com/deusflow/newsdigest/internal/sources"
	"github.com/deusflow/newsdigest/internal/storage"
	"github.com/deusflow/newsdigest/internal/translate"
)

// App owns everything one digest run needs. The registry is read once.
type App struct {
	cfg       *config.Config
	registry  *sources.Registry
	engine    *news.Engine
	gateway   *translate.Gateway
	limiter   *ratelimit.Limiter
	artifacts *storage.Artifacts
	closers   []func()
	now       func() time.Time
}

// New loads the source registry and wires fetchers, translator and outputs.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	registry, err := sources.Load(cfg.SourcesPath)
	if err != nil {
		return nil, err
	}
	logger.Info("source registry loaded",
		"path", cfg.SourcesPath,
		"categories", len(registry.Categories),
		"sources", registry.Len())

	client := httpclient.New(cfg.FetchTimeout, cfg.UserAgent)

	a := &App{
		cfg:       cfg,
		registry:  registry,
		artifacts: storage.NewArtifacts(cfg.OutputPath, cfg.OutputJSONPath),
		now:       time.Now,
	}

	tr, err := a.buildTranslator(ctx, client)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = news.NewEngine(
		discovery.New(client, cfg.DiscoveryTimeout),
		rss.NewFetcher(client),
		scraper.New(client),
		news.Options{
			Workers:         cfg.FetchWorkers,
			FetchTimeout:    cfg.FetchTimeout,
			PageSize:        cfg.PageSize,
			MaxPerCategory:  cfg.MaxPerCategory,
			DefaultSelector: cfg.DefaultSelector,
			Translator:      tr,
		},
	)
	return a, nil
}

// buildTranslator assembles the configured backends into a chain behind one
// gateway. "none" alone disables translation.
func (a *App) buildTranslator(ctx context.Context, client *httpclient.Client) (translate.Translator, error) {
	cfg := a.cfg

	var chain translate.Chain
	for _, name := range cfg.Translators {
		switch name {
		case config.TranslatorGoogle:
			chain = append(chain, translate.Named{
				Name:       name,
				Translator: translate.NewGoogle(client, cfg.GoogleEndpoint, cfg.Target().String()),
			})
		case config.TranslatorOpenAI:
			chain = append(chain, translate.Named{
				Name:       name,
				Translator: translate.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Target()),
			})
		case config.TranslatorGemini:
			g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.Target())
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, g.Close)
			chain = append(chain, translate.Named{Name: name, Translator: g})
		case config.TranslatorNone:
		default:
			return nil, fmt.Errorf("unknown translator %q", name)
		}
	}

	if len(chain) == 0 {
		logger.Info("translation disabled")
		return translate.Noop{}, nil
	}

	c := cache.New[string](cfg.TranslateCacheTTL)
	a.closers = append(a.closers, c.Close)

	a.limiter = ratelimit.New(cfg.TranslateRPS, cfg.TranslateConcurrency, cfg.MaxTranslations)
	a.gateway = translate.NewGateway(chain, a.limiter, c, cfg.Target().String())

	logger.Info("translation enabled",
		"backends", cfg.Translators,
		"target", cfg.Target().String(),
		"rps", cfg.TranslateRPS,
		"concurrency", cfg.TranslateConcurrency)
	return a.gateway, nil
}

// RunOnce aggregates every source and writes the artifacts. Only output
// failures are returned; failing sources just contribute nothing.
func (a *App) RunOnce(ctx context.Context) error {
	start := time.Now()

	if a.gateway != nil {
		a.gateway.StartRun()
	}

	rc := news.NewRunContext(a.now(), a.cfg.Location(), a.cfg.RecencyWindow)

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.RunDeadline)
	defer cancel()

	pages := a.engine.Aggregate(runCtx, a.registry, rc)
	doc := render.NewDocument(a.cfg.DigestTitle, pages, rc, a.cfg.RefreshSeconds)
	if doc.Total == 0 {
		logger.Warn("no news in the recency window", "window", a.cfg.RecencyWindow)
	}

	if err := a.artifacts.Save(doc); err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}

	elapsed := time.Since(start)
	metrics.Global.RecordProcessingTime(elapsed)
	metrics.Global.SetLastRun(doc.Total)

	if a.gateway != nil {
		a.limiter.PrintStats()
		logger.Debug("translation cache", "entries", a.gateway.Stats()["cache_entries"])
	}
	logger.Info("run completed",
		"items", doc.Total,
		"pages", len(doc.Pages),
		"duration", elapsed.Round(time.Millisecond))
	return nil
}

// Run performs one run, or keeps regenerating the artifacts every
// RunInterval until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.RunOnce(ctx); err != nil {
		return err
	}
	if a.cfg.RunInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(a.cfg.RunInterval)
	defer ticker.Stop()

	logger.Info("refresh loop started", "interval", a.cfg.RunInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				logger.Error("run failed", "error", err)
			}
		}
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run is the process entry point: build the app, run, release resources.
func Run(ctx context.Context, cfg *config.Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}
