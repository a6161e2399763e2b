package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/cost"
	"github.com/crosslogic/fieldmap-cli/internal/db"
	"github.com/crosslogic/fieldmap-cli/internal/extract"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/resilience"
	"github.com/crosslogic/fieldmap-cli/internal/resolve"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
	"github.com/crosslogic/fieldmap-cli/internal/store"
	"github.com/crosslogic/fieldmap-cli/internal/usage"
	anthropicpkg "github.com/crosslogic/fieldmap-cli/pkg/anthropic"
	"github.com/crosslogic/fieldmap-cli/pkg/gemini"
	"github.com/crosslogic/fieldmap-cli/pkg/odata"
)

// resolveEnv holds the initialized clients and pipeline pieces needed by the
// resolve and batch commands.
type resolveEnv struct {
	Store     store.Store
	Index     *retrieval.PostgresIndex
	Scheduler *resolve.Scheduler
	Recorder  *usage.Recorder
	Calc      *cost.Calculator
	Verifier  *resolve.Verifier // nil unless verify.enabled
	Extractor *extract.Extractor
	Reporter  *extract.ReportWriter

	pool *pgxpool.Pool
}

// Close releases resources held by the environment.
func (e *resolveEnv) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the run store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// indexEnv holds just enough to load reference data into the index.
type indexEnv struct {
	Index    *retrieval.PostgresIndex
	Recorder *usage.Recorder

	pool *pgxpool.Pool
}

func (e *indexEnv) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// initIndex connects to the retrieval database and builds the index with the
// Gemini embedder. Used by the index subcommands, which need no scheduler or
// run store.
func initIndex(ctx context.Context) (*indexEnv, error) {
	if err := cfg.Validate("index"); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg.Retrieval.DatabaseURL, &cfg.Retrieval.Pool)
	if err != nil {
		return nil, err
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithEmbedModel(cfg.Gemini.EmbedModel))
	if err != nil {
		pool.Close()
		return nil, err
	}

	recorder := usage.NewRecorder()
	return &indexEnv{
		Index:    retrieval.NewPostgresIndex(pool, geminiClient, completion.ProviderGemini, recorder),
		Recorder: recorder,
		pool:     pool,
	}, nil
}

// initResolution sets up the store, the reference index, the completion port
// and the scheduler. Callers should defer env.Close().
func initResolution(ctx context.Context, mode, providerOverride, system string) (*resolveEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	recorder := usage.NewRecorder()

	pool, err := db.Connect(ctx, cfg.Retrieval.DatabaseURL, &cfg.Retrieval.Pool)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithEmbedModel(cfg.Gemini.EmbedModel))
	if err != nil {
		pool.Close()
		_ = st.Close()
		return nil, err
	}

	index := retrieval.NewPostgresIndex(pool, geminiClient, completion.ProviderGemini, recorder)

	invokers := map[string]completion.Invoker{}
	if cfg.Anthropic.Key != "" {
		invokers[completion.ProviderClaude] = completion.NewAnthropic(
			anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	}
	if cfg.Gemini.Key != "" {
		invokers[completion.ProviderGemini] = completion.NewGemini(geminiClient, cfg.Gemini.Model)
	}

	override := providerOverride
	if override == "" {
		override = cfg.Resolver.Provider
	}
	invoker, err := completion.SelectProvider(override, invokers, nil)
	if err != nil {
		pool.Close()
		_ = st.Close()
		return nil, err
	}

	completer := completion.NewPort(invoker, cfg.Resolver.RequestsPerSecond, cfg.Resolver.RequestBurst, recorder)

	opts, err := buildOptions(system)
	if err != nil {
		pool.Close()
		_ = st.Close()
		return nil, err
	}

	orch := resolve.NewOrchestrator(index, completer, opts)
	sched, err := resolve.NewScheduler(orch, cfg.Resolver.Concurrency, cfg.Resolver.TaskTimeout(), cfg.Resolver.BatchDeadline())
	if err != nil {
		pool.Close()
		_ = st.Close()
		return nil, err
	}

	env := &resolveEnv{
		Store:     st,
		Index:     index,
		Scheduler: sched,
		Recorder:  recorder,
		Calc:      cost.NewCalculator(cfg.Pricing),
		Extractor: extract.NewExtractor(cfg.Extract.Layout),
		Reporter:  extract.NewReportWriter(cfg.Extract.Layout),
		pool:      pool,
	}

	if cfg.Verify.Enabled {
		client := odata.NewClient(cfg.Verify.URL, cfg.Verify.Username, cfg.Verify.Password)
		env.Verifier = resolve.NewVerifier(client, cfg.Verify.Note)
		zap.L().Info("verification pass enabled", zap.String("url", cfg.Verify.URL))
	}

	return env, nil
}

// buildOptions derives resolution options from the configuration and, when a
// profile file is configured, the per-source-system profile.
func buildOptions(system string) (resolve.Options, error) {
	opts := resolve.Options{
		CustomThreshold:   cfg.Resolver.CustomThreshold,
		StandardThreshold: cfg.Resolver.StandardThreshold,
		ScenarioTopN:      cfg.Resolver.ScenarioTopN,
		MaxCandidateViews: cfg.Resolver.MaxCandidateViews,
	}

	if cfg.Resolver.ProfilePath != "" {
		profile, err := resolve.LoadProfile(cfg.Resolver.ProfilePath)
		if err != nil {
			return resolve.Options{}, err
		}
		opts = profile.OptionsFor(system)
		zap.L().Info("resolution profile loaded",
			zap.String("path", cfg.Resolver.ProfilePath),
			zap.String("system", system))
	}

	// max_retries counts retries after the first try, so attempts is one more.
	opts.Retry = resilience.RetryConfig{
		MaxAttempts:    cfg.Resolver.MaxRetries + 1,
		InitialBackoff: cfg.Resolver.BackoffBase(),
		MaxBackoff:     cfg.Resolver.BackoffMax(),
		RateLimitFloor: cfg.Resolver.RateLimitFloor(),
	}
	return opts, nil
}

// usageDelta returns per-provider usage accumulated between two recorder
// snapshots. Shared recorders span multiple workbooks in batch mode.
func usageDelta(before, after map[string]model.TokenUsage) map[string]model.TokenUsage {
	delta := make(map[string]model.TokenUsage, len(after))
	for provider, u := range after {
		b := before[provider]
		d := model.TokenUsage{
			EmbeddingTokens: u.EmbeddingTokens - b.EmbeddingTokens,
			InputTokens:     u.InputTokens - b.InputTokens,
			OutputTokens:    u.OutputTokens - b.OutputTokens,
		}
		if d.EmbeddingTokens != 0 || d.InputTokens != 0 || d.OutputTokens != 0 {
			delta[provider] = d
		}
	}
	return delta
}
