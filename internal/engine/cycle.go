package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"signalbot/internal/ledger"
	"signalbot/internal/logger"
	"signalbot/internal/market"
	"signalbot/internal/position"
	"signalbot/internal/signal"

	"golang.org/x/sync/errgroup"
)

// ErrFeedUnavailable is returned when the feed breaker is open and the cycle is skipped.
var ErrFeedUnavailable = errors.New("market feed circuit open")

// Outcome classifies what happened to one symbol in a cycle.
type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeRejected Outcome = "rejected"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeErrored  Outcome = "errored"
)

// CycleReport counts per-symbol outcomes and what the cycle dispatched.
type CycleReport struct {
	At             time.Time
	Scanned        int
	Admitted       int
	Rejected       int
	Skipped        int
	Errored        int
	Dispatched     int
	Opened         int
	SkippedCapital int
	Signals        []signal.Signal
}

func (r CycleReport) String() string {
	return fmt.Sprintf("scanned=%d admitted=%d rejected=%d skipped=%d errored=%d dispatched=%d opened=%d skipped_capital=%d",
		r.Scanned, r.Admitted, r.Rejected, r.Skipped, r.Errored, r.Dispatched, r.Opened, r.SkippedCapital)
}

type symbolResult struct {
	symbol    string
	outcome   Outcome
	candidate signal.Candidate
	series    market.Series
	err       error
}

// RunCycle scans the universe, ranks admitted candidates once all symbols are
// done, dispatches the survivors and optionally opens positions for them.
// Per-symbol failures are counted, never returned.
func (e *Engine) RunCycle(ctx context.Context, at time.Time) (CycleReport, error) {
	report := CycleReport{At: at}
	if !e.breaker.Allow() {
		logger.Warnf("engine: market feed circuit open, skipping cycle")
		return report, ErrFeedUnavailable
	}
	start := e.nowFn()
	symbols, err := e.resolveSymbols(ctx)
	if err != nil {
		e.breaker.RecordFailure()
		return report, err
	}
	report.Scanned = len(symbols)

	results := make([]symbolResult, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxParallel)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			results[i] = e.evaluateSymbol(gctx, sym, at)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var (
		cands  []signal.Candidate
		series = make(map[string]market.Series)
	)
	for _, res := range results {
		switch res.outcome {
		case OutcomeAdmitted:
			report.Admitted++
			cands = append(cands, res.candidate)
			series[res.symbol] = res.series
		case OutcomeRejected:
			report.Rejected++
		case OutcomeSkipped:
			report.Skipped++
			logger.Debugf("engine: skip %s: %v", res.symbol, res.err)
		case OutcomeErrored:
			report.Errored++
			logger.With("symbol", res.symbol, "err", res.err).Warn("symbol errored")
		}
	}
	if report.Scanned > 0 && report.Errored == report.Scanned {
		e.breaker.RecordFailure()
	} else {
		e.breaker.RecordSuccess()
	}

	sigs, err := e.alerts.Select(ctx, cands, e.isOpen, at)
	if err != nil {
		logger.Errorf("engine: alert selection failed: %v", err)
	}
	report.Signals = sigs
	report.Dispatched = len(sigs)
	for _, sig := range sigs {
		e.send(renderAlert(sig))
		if !e.opts.OpenPositions || e.positions == nil {
			continue
		}
		e.openFor(ctx, sig, series[sig.Symbol], &report)
	}

	e.metrics.RecordOutcome(string(OutcomeAdmitted), report.Admitted)
	e.metrics.RecordOutcome(string(OutcomeRejected), report.Rejected)
	e.metrics.RecordOutcome(string(OutcomeSkipped), report.Skipped)
	e.metrics.RecordOutcome(string(OutcomeErrored), report.Errored)
	e.metrics.RecordAlerts(report.Dispatched)
	e.metrics.RecordLatency("cycle", e.nowFn().Sub(start).Seconds())
	e.refreshGauges()
	logger.Infof("engine: cycle %s", report)
	return report, nil
}

func (e *Engine) openFor(ctx context.Context, sig signal.Signal, series market.Series, report *CycleReport) {
	target := e.opts.Target.Derive(series)
	pos, err := e.positions.Open(ctx, position.OpenRequest{
		Symbol:      sig.Symbol,
		SignalID:    sig.ID,
		EntryPrice:  sig.EntryPrice,
		TargetPct:   target,
		StopLossPct: e.opts.StopLossPct,
		At:          sig.Timestamp,
	})
	switch {
	case err == nil:
		report.Opened++
		e.metrics.RecordOpened()
		e.send(renderOpen(pos))
	case errors.Is(err, ledger.ErrBelowMinimum), errors.Is(err, ledger.ErrInsufficientBalance):
		report.SkippedCapital++
		logger.Infof("engine: %s not opened: %v", sig.Symbol, err)
	case errors.Is(err, position.ErrAlreadyOpen):
		logger.Debugf("engine: %s already open", sig.Symbol)
	default:
		logger.Errorf("engine: open %s failed: %v", sig.Symbol, err)
	}
}

func (e *Engine) evaluateSymbol(ctx context.Context, symbol string, at time.Time) symbolResult {
	res := symbolResult{symbol: symbol}
	raw, err := e.feed.FetchCandles(ctx, symbol, e.opts.Timeframe, e.opts.CandleLimit)
	if err != nil {
		res.err = err
		res.outcome = classifyErr(err)
		return res
	}
	series, err := market.NewSeries(symbol, e.opts.Timeframe, raw)
	if err != nil {
		res.err, res.outcome = err, OutcomeErrored
		return res
	}
	vec, err := e.extractor.Extract(series)
	if err != nil {
		res.err = err
		res.outcome = classifyErr(err)
		return res
	}
	score, ok := e.gate.Evaluate(ctx, vec)
	if !ok {
		res.outcome = OutcomeRejected
		return res
	}
	last, _ := series.Last()
	res.outcome = OutcomeAdmitted
	res.series = series
	res.candidate = signal.Candidate{
		Symbol:   symbol,
		Features: vec,
		Score:    score,
		Price:    last.Close,
		At:       at,
	}
	return res
}

// classifyErr treats short series and unknown symbols as skips and everything
// else as a transient error. Both leave the rest of the batch untouched.
func classifyErr(err error) Outcome {
	if errors.Is(err, market.ErrInsufficientData) || errors.Is(err, market.ErrUnknownSymbol) {
		return OutcomeSkipped
	}
	return OutcomeErrored
}

func (e *Engine) isOpen(symbol string) bool {
	if e.positions == nil {
		return false
	}
	return e.positions.IsOpen(symbol)
}

// resolveSymbols returns the configured symbols, or discovers and caches the
// exchange universe on first use.
func (e *Engine) resolveSymbols(ctx context.Context) ([]string, error) {
	if len(e.opts.Symbols) > 0 {
		return e.opts.Symbols, nil
	}
	e.mu.Lock()
	cached := e.symbols
	e.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	if e.universe == nil {
		return nil, fmt.Errorf("no symbols configured and no universe lister")
	}
	syms, err := e.universe.ListSymbols(ctx, e.opts.UniverseQuote, e.opts.UniverseMax)
	if err != nil {
		return nil, fmt.Errorf("discover universe: %w", err)
	}
	sort.Strings(syms)
	e.mu.Lock()
	e.symbols = syms
	e.mu.Unlock()
	logger.Infof("engine: discovered %d %s symbols", len(syms), e.opts.UniverseQuote)
	return syms, nil
}

// Symbols returns the current universe without triggering discovery.
func (e *Engine) Symbols() []string {
	if len(e.opts.Symbols) > 0 {
		return append([]string(nil), e.opts.Symbols...)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.symbols...)
}
