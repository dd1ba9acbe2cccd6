package alert

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Window counts alerts dispatched in the trailing window. An alert sent at t
// counts while now-t < window.
type Window interface {
	Count(ctx context.Context, now time.Time) (int, error)
	Record(ctx context.Context, symbol string, at time.Time) error
}

type entry struct {
	symbol string
	at     time.Time
}

// MemoryWindow is a process-local Window. Entries older than the window are
// evicted on every call so it never grows beyond one window of alerts.
type MemoryWindow struct {
	mu      sync.Mutex
	span    time.Duration
	entries []entry
}

func NewMemoryWindow(span time.Duration) *MemoryWindow {
	return &MemoryWindow{span: span}
}

func (w *MemoryWindow) Count(ctx context.Context, now time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.entries), nil
}

func (w *MemoryWindow) Record(ctx context.Context, symbol string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry{symbol: symbol, at: at})
	w.prune(at)
	return nil
}

func (w *MemoryWindow) prune(now time.Time) {
	keep := w.entries[:0]
	for _, e := range w.entries {
		if now.Sub(e.at) < w.span {
			keep = append(keep, e)
		}
	}
	w.entries = keep
}

// RedisWindow keeps the window in a sorted set scored by dispatch time, so
// several bot processes can share one alert budget.
type RedisWindow struct {
	client *redis.Client
	key    string
	span   time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func NewRedisWindow(ctx context.Context, opts RedisOptions, span time.Duration) (*RedisWindow, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWindowFromClient(client, opts.Key, span), nil
}

func NewRedisWindowFromClient(client *redis.Client, key string, span time.Duration) *RedisWindow {
	return &RedisWindow{client: client, key: key, span: span}
}

func (w *RedisWindow) Count(ctx context.Context, now time.Time) (int, error) {
	cutoff := strconv.FormatInt(now.Add(-w.span).UnixMilli(), 10)
	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, w.key, "-inf", cutoff)
	card := pipe.ZCard(ctx, w.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (w *RedisWindow) Record(ctx context.Context, symbol string, at time.Time) error {
	member := symbol + "|" + uuid.NewString()
	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, w.key, redis.Z{Score: float64(at.UnixMilli()), Member: member})
	pipe.PExpire(ctx, w.key, 2*w.span)
	_, err := pipe.Exec(ctx)
	return err
}

func (w *RedisWindow) Close() error {
	return w.client.Close()
}
