package engine

import (
	"context"
	"sync"
	"time"

	"signalbot/internal/gateway/notifier"
	"signalbot/internal/ledger"
	"signalbot/internal/logger"
	"signalbot/internal/market"
	"signalbot/internal/metrics"
	"signalbot/internal/outcome"
	"signalbot/internal/pkg/circuit"
	"signalbot/internal/position"
	"signalbot/internal/signal"
	"signalbot/internal/store"
)

type Extractor interface {
	Extract(series market.Series) (signal.FeatureVector, error)
}

type Gate interface {
	Evaluate(ctx context.Context, v signal.FeatureVector) (float64, bool)
}

type Alerts interface {
	Select(ctx context.Context, cands []signal.Candidate, isOpen func(string) bool, now time.Time) ([]signal.Signal, error)
}

type Positions interface {
	IsOpen(symbol string) bool
	List() []position.Position
	Open(ctx context.Context, req position.OpenRequest) (position.Position, error)
	Monitor(ctx context.Context, feed market.PriceFeed) (position.MonitorReport, error)
}

type Ledger interface {
	Snapshot() ledger.Snapshot
}

type Resolver interface {
	Sweep(ctx context.Context) (outcome.Summary, error)
}

type Options struct {
	Timeframe     string
	CandleLimit   int
	Symbols       []string
	UniverseQuote string
	UniverseMax   int
	MaxParallel   int
	OpenPositions bool
	StopLossPct   float64
	Target        outcome.TargetDeriver
	// SummaryEvery <= 0 disables the periodic summary.
	SummaryEvery time.Duration
}

// Params 汇总 Engine 的全部协作者，由 app 组装后一次性传入。
type Params struct {
	Feed      market.Feed
	Universe  market.UniverseLister
	Extractor Extractor
	Gate      Gate
	Alerts    Alerts
	Positions Positions
	Ledger    Ledger
	Resolver  Resolver
	Signals   store.SignalRepository
	Notifier  notifier.Sender
	Metrics   *metrics.Recorder
	Breaker   *circuit.Breaker
	Options   Options
}

// Engine is the explicit context object for the pipeline: every collaborator is
// injected once and nothing is shared through package globals.
type Engine struct {
	feed      market.Feed
	universe  market.UniverseLister
	extractor Extractor
	gate      Gate
	alerts    Alerts
	positions Positions
	ledger    Ledger
	resolver  Resolver
	signals   store.SignalRepository
	notifier  notifier.Sender
	metrics   *metrics.Recorder
	breaker   *circuit.Breaker
	opts      Options
	nowFn     func() time.Time

	mu          sync.Mutex
	lastSummary time.Time
	symbols     []string
}

func New(p Params) *Engine {
	opts := p.Options
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 8
	}
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = 100
	}
	if opts.Timeframe == "" {
		opts.Timeframe = "1h"
	}
	breaker := p.Breaker
	if breaker == nil {
		breaker = circuit.New("market-feed", 3, 5*time.Minute)
	}
	breaker.OnStateChange(func(name string, from, to circuit.State) {
		logger.Warnf("engine: circuit %s %s -> %s", name, from, to)
	})
	return &Engine{
		feed:      p.Feed,
		universe:  p.Universe,
		extractor: p.Extractor,
		gate:      p.Gate,
		alerts:    p.Alerts,
		positions: p.Positions,
		ledger:    p.Ledger,
		resolver:  p.Resolver,
		signals:   p.Signals,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
		breaker:   breaker,
		opts:      opts,
		nowFn:     time.Now,
	}
}

// MonitorPositions runs one monitoring pass and notifies every closure.
func (e *Engine) MonitorPositions(ctx context.Context) (position.MonitorReport, error) {
	if e.positions == nil {
		return position.MonitorReport{}, nil
	}
	start := e.nowFn()
	report, err := e.positions.Monitor(ctx, e.feed)
	if err != nil {
		return report, err
	}
	for _, trade := range report.Closed {
		e.metrics.RecordClosed(trade.ClosedBy)
		e.send(renderClose(trade))
	}
	e.metrics.RecordLatency("monitor", e.nowFn().Sub(start).Seconds())
	e.refreshGauges()
	return report, nil
}

// ResolveSweep labels pending signals with their realized move.
func (e *Engine) ResolveSweep(ctx context.Context) (outcome.Summary, error) {
	if e.resolver == nil {
		return outcome.Summary{}, nil
	}
	start := e.nowFn()
	sum, err := e.resolver.Sweep(ctx)
	e.metrics.RecordResolved("updated", sum.Updated)
	e.metrics.RecordResolved("ignored", sum.Ignored)
	e.metrics.RecordResolved("already_resolved", sum.AlreadyResolved)
	e.metrics.RecordResolved("error", sum.Errors)
	e.metrics.RecordLatency("resolve", e.nowFn().Sub(start).Seconds())
	if err != nil {
		return sum, err
	}
	logger.Infof("resolver: %s", sum)
	return sum, nil
}

// MaybeSummarize sends the periodic summary once SummaryEvery has elapsed
// since the previous one. The first call only starts the clock.
func (e *Engine) MaybeSummarize(ctx context.Context, now time.Time) bool {
	if e.opts.SummaryEvery <= 0 {
		return false
	}
	e.mu.Lock()
	last := e.lastSummary
	if last.IsZero() {
		e.lastSummary = now
		e.mu.Unlock()
		return false
	}
	if now.Sub(last) < e.opts.SummaryEvery {
		e.mu.Unlock()
		return false
	}
	e.lastSummary = now
	e.mu.Unlock()

	alerts := int64(0)
	if e.signals != nil {
		n, err := e.signals.CountSince(ctx, last)
		if err != nil {
			logger.Warnf("engine: count signals for summary failed: %v", err)
		}
		alerts = n
	}
	var open []position.Position
	if e.positions != nil {
		open = e.positions.List()
	}
	var snap ledger.Snapshot
	if e.ledger != nil {
		snap = e.ledger.Snapshot()
	}
	e.send(renderSummary(now, now.Sub(last), alerts, open, e.markPrices(ctx, open), snap))
	return true
}

// markPrices fetches the latest price per open position. Symbols whose price
// cannot be fetched are left out and rendered without a mark.
func (e *Engine) markPrices(ctx context.Context, open []position.Position) map[string]float64 {
	marks := make(map[string]float64, len(open))
	if e.feed == nil {
		return marks
	}
	for _, p := range open {
		price, err := e.feed.FetchPrice(ctx, p.Symbol)
		if err != nil || price <= 0 {
			logger.Warnf("engine: mark price for %s unavailable: %v", p.Symbol, err)
			continue
		}
		marks[p.Symbol] = price
	}
	return marks
}

func (e *Engine) send(text string) {
	if e.notifier == nil || text == "" {
		return
	}
	e.notifier.Send(text)
}

func (e *Engine) refreshGauges() {
	if e.ledger != nil {
		bal, _ := e.ledger.Snapshot().Balance.Float64()
		e.metrics.SetBalance(bal)
	}
	if e.positions != nil {
		e.metrics.SetOpenPositions(len(e.positions.List()))
	}
}
