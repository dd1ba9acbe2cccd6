// Package outcome derives position targets and labels recorded signals with
// their realized move for offline retraining.
package outcome

import (
	"context"
	"fmt"
	"time"

	"signalbot/internal/logger"
	"signalbot/internal/market"
	"signalbot/internal/pkg/utils"
	"signalbot/internal/store"
)

const (
	DefaultCooldown = 24 * time.Hour
	defaultPageSize = 200
)

// Summary counts what one sweep did. AlreadyResolved covers idempotency
// conflicts, which are expected and not failures.
type Summary struct {
	Scanned         int `json:"scanned"`
	Updated         int `json:"updated"`
	Ignored         int `json:"ignored"`
	AlreadyResolved int `json:"already_resolved"`
	Errors          int `json:"errors"`
}

func (s Summary) String() string {
	return fmt.Sprintf("scanned=%d updated=%d ignored=%d already_resolved=%d errors=%d",
		s.Scanned, s.Updated, s.Ignored, s.AlreadyResolved, s.Errors)
}

type Resolver struct {
	signals  store.SignalRepository
	feed     market.PriceFeed
	cooldown time.Duration
	pageSize int
	nowFn    func() time.Time
}

func NewResolver(signals store.SignalRepository, feed market.PriceFeed, cooldown time.Duration, pageSize int) *Resolver {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Resolver{
		signals:  signals,
		feed:     feed,
		cooldown: cooldown,
		pageSize: pageSize,
		nowFn:    time.Now,
	}
}

// Sweep streams every pending signal and writes its realized percentage once.
// Per-signal failures are counted and the sweep continues; only a failed page
// read aborts it. A symbol whose price lookup failed is not queried again in
// the same sweep.
func (r *Resolver) Sweep(ctx context.Context) (Summary, error) {
	var (
		sum    Summary
		cursor store.Cursor
		prices = make(map[string]float64)
		failed = make(map[string]struct{})
	)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rows, next, err := r.signals.ListPending(ctx, cursor, r.pageSize)
		if err != nil {
			return sum, fmt.Errorf("list pending signals: %w", err)
		}
		for _, row := range rows {
			sum.Scanned++
			if row.EntryPrice == nil || *row.EntryPrice <= 0 {
				sum.Ignored++
				continue
			}
			if _, bad := failed[row.Symbol]; bad {
				sum.Errors++
				continue
			}
			price, ok := prices[row.Symbol]
			if !ok {
				price, err = r.feed.FetchPrice(ctx, row.Symbol)
				if err != nil || price <= 0 {
					logger.Warnf("resolver: price for %s unavailable: %v", row.Symbol, err)
					failed[row.Symbol] = struct{}{}
					sum.Errors++
					continue
				}
				prices[row.Symbol] = price
			}
			result := RealizedPct(*row.EntryPrice, price)
			now := r.nowFn()
			written, err := r.signals.Resolve(ctx, row.ID, result, now, now.Add(-r.cooldown))
			switch {
			case err != nil:
				logger.Warnf("resolver: write %s failed: %v", row.ID, err)
				sum.Errors++
			case written:
				sum.Updated++
			default:
				sum.AlreadyResolved++
			}
		}
		if next.IsZero() {
			break
		}
		cursor = next
	}
	return sum, nil
}

// RealizedPct is round((current-entry)/entry*100, 2).
func RealizedPct(entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	return utils.Round((current-entry)/entry*100, 2)
}
