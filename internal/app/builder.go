package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"signalbot/internal/alert"
	"signalbot/internal/analysis/feature"
	"signalbot/internal/config"
	"signalbot/internal/engine"
	"signalbot/internal/gateway/notifier"
	"signalbot/internal/ledger"
	"signalbot/internal/logger"
	"signalbot/internal/market"
	"signalbot/internal/metrics"
	"signalbot/internal/outcome"
	"signalbot/internal/pkg/circuit"
	"signalbot/internal/position"
	"signalbot/internal/scoring"
	"signalbot/internal/signal"
	"signalbot/internal/store"
	"signalbot/internal/store/sqlite"
	apihttp "signalbot/internal/transport/http/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MarketFeed is what the builder needs from a market source.
type MarketFeed interface {
	market.Feed
	market.UniverseLister
}

type AppBuilder struct {
	cfg *config.Config

	storeFn    func(config.StoreConfig) (store.Store, error)
	feedFn     func(config.MarketConfig) (MarketFeed, error)
	scorerFn   func(config.ScoringConfig) (signal.Scorer, *scoring.ModelRegistry, error)
	windowFn   func(context.Context, config.AlertConfig) (alert.Window, func() error, error)
	notifierFn func(config.NotifyConfig) notifier.TextNotifier
	registerer prometheus.Registerer
	withHTTP   bool
}

type AppBuilderOption func(*AppBuilder)

// WithStore overrides persistence, e.g. with a temp-dir sqlite store in tests.
func WithStore(fn func(config.StoreConfig) (store.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = fn }
}

func WithFeed(fn func(config.MarketConfig) (MarketFeed, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.feedFn = fn }
}

func WithNotifier(fn func(config.NotifyConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierFn = fn }
}

func WithRegisterer(reg prometheus.Registerer) AppBuilderOption {
	return func(b *AppBuilder) { b.registerer = reg }
}

func WithoutHTTP() AppBuilderOption {
	return func(b *AppBuilder) { b.withHTTP = false }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		storeFn:    buildStore,
		feedFn:     buildFeed,
		scorerFn:   buildScorer,
		windowFn:   buildWindow,
		notifierFn: buildNotifier,
		withHTTP:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	app := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	st, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, st.Close)

	feed, err := b.feedFn(cfg.Market)
	if err != nil {
		return fail(fmt.Errorf("market feed: %w", err))
	}

	scorer, registry, err := b.scorerFn(cfg.Scoring)
	if err != nil {
		return fail(fmt.Errorf("scoring: %w", err))
	}
	app.registry = registry
	mode, err := signal.ParseMode(cfg.Scoring.Mode)
	if err != nil {
		return fail(err)
	}

	window, closeWindow, err := b.windowFn(ctx, cfg.Alert)
	if err != nil {
		return fail(fmt.Errorf("alert window: %w", err))
	}
	if closeWindow != nil {
		app.closers = append(app.closers, closeWindow)
	}

	ldg, err := ledger.New(ctx, st.Account(), ledger.Config{
		InitialBalance: cfg.Ledger.InitialBalance,
		Fraction:       cfg.Ledger.Fraction,
		MinTrade:       cfg.Ledger.MinTrade,
		Basis:          ledger.SizingBasis(cfg.Ledger.SizingBasis),
	})
	if err != nil {
		return fail(fmt.Errorf("ledger: %w", err))
	}

	positions := position.NewStore(ldg, st, position.Options{
		MaxHolding:  cfg.Position.MaxHolding(),
		MaxParallel: cfg.Schedule.MaxParallel,
	})
	restored, err := positions.Restore(ctx)
	if err != nil {
		return fail(err)
	}

	reg := b.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	recorder := metrics.New(reg)

	dispatcher := notifier.NewDispatcher(b.notifierFn(cfg.Notify), 0, recorder.RecordNotify)
	app.notifier = dispatcher

	eng := engine.New(engine.Params{
		Feed:      feed,
		Universe:  feed,
		Extractor: feature.NewExtractor(feature.DefaultParams()),
		Gate:      signal.NewGate(scorer, mode, cfg.Scoring.Threshold),
		Alerts:    alert.NewRanker(cfg.Alert.MaxPerCycle, window, st.Signals()),
		Positions: positions,
		Ledger:    ldg,
		Resolver:  outcome.NewResolver(st.Signals(), feed, cfg.Resolver.Cooldown(), cfg.Resolver.PageSize),
		Signals:   st.Signals(),
		Notifier:  dispatcher,
		Metrics:   recorder,
		Breaker:   circuit.New("market-feed", 3, 5*time.Minute),
		Options: engine.Options{
			Timeframe:     cfg.Market.Timeframe,
			CandleLimit:   cfg.Market.CandleLimit,
			Symbols:       cfg.Market.Symbols,
			UniverseQuote: cfg.Market.UniverseQuote,
			UniverseMax:   cfg.Market.UniverseMax,
			MaxParallel:   cfg.Schedule.MaxParallel,
			OpenPositions: cfg.Position.Enabled,
			StopLossPct:   cfg.Position.StopLossPct,
			Target: outcome.TargetDeriver{
				Mode:     outcome.TargetMode(cfg.Position.TargetMode),
				FixedPct: cfg.Position.FixedTargetPct,
				MinPct:   cfg.Position.MinTargetPct,
				Factor:   cfg.Position.VolatilityFactor,
			},
			SummaryEvery: time.Duration(cfg.Schedule.SummaryIntervalHours) * time.Hour,
		},
	})
	app.engine = eng

	if b.withHTTP {
		var metricsHandler http.Handler
		if g, ok := reg.(prometheus.Gatherer); ok && reg != prometheus.DefaultRegisterer {
			metricsHandler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
		srv, err := apihttp.NewServer(apihttp.ServerConfig{
			Addr:    cfg.App.HTTPAddr,
			Metrics: metricsHandler,
			Router: &apihttp.Router{
				Account:   ldg,
				Positions: positions,
				Trades:    st.Trades(),
				Signals:   st.Signals(),
				Resolver:  eng,
			},
		})
		if err != nil {
			return fail(fmt.Errorf("http server: %w", err))
		}
		app.http = srv
	}

	app.Summary = newStartupSummary(cfg, ldg.Snapshot(), restored, registry)
	return app, nil
}

func buildStore(cfg config.StoreConfig) (store.Store, error) {
	return sqlite.NewSqliteStore(cfg.Path)
}
