package scheduler

import (
	"sync"
	"time"

	"signalbot/internal/logger"
)

// AlignedTicker fires offset after every interval boundary (UTC), e.g. ten
// seconds after each hourly candle closes.
type AlignedTicker struct {
	interval time.Duration
	offset   time.Duration
	nowFn    func() time.Time

	ch   chan time.Time
	stop chan struct{}
	once sync.Once
}

func NewAlignedTicker(interval, offset time.Duration) *AlignedTicker {
	if offset < 0 {
		logger.Warnf("AlignedTicker: negative offset=%s, clamp to 0", offset)
		offset = 0
	}
	t := &AlignedTicker{
		interval: interval,
		offset:   offset,
		nowFn:    time.Now,
		ch:       make(chan time.Time, 1),
		stop:     make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *AlignedTicker) C() <-chan time.Time { return t.ch }

func (t *AlignedTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *AlignedTicker) run() {
	if t.interval <= 0 {
		logger.Warnf("AlignedTicker: invalid interval=%s, never fires", t.interval)
		return
	}
	for {
		now := t.nowFn().UTC()
		nextClose, wakeAt, wait := nextTimes(now, t.interval, t.offset)
		logger.Debugf("AlignedTicker: until close=%s (close=%s) next run=%s",
			nextClose.Sub(now).Truncate(time.Second), nextClose.Format(time.RFC3339), wakeAt.Format(time.RFC3339))
		timer := time.NewTimer(wait)
		select {
		case <-t.stop:
			timer.Stop()
			return
		case fired := <-timer.C:
			if !offer(t.ch, fired) {
				logger.Warnf("AlignedTicker: previous tick still pending, dropping %s", fired.UTC().Format(time.RFC3339))
			}
		}
	}
}

// offer hands at to a one-slot channel without blocking. It reports false
// when a tick is already pending.
func offer(ch chan time.Time, at time.Time) bool {
	select {
	case ch <- at:
		return true
	default:
		return false
	}
}

func nextTimes(now time.Time, interval, offset time.Duration) (nextClose, wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	nextClose = now.Truncate(interval).Add(interval)
	wakeAt = nextClose.Add(offset)
	// the offset may put the current boundary's wake-up still ahead of us
	if prev := nextClose.Add(-interval).Add(offset); prev.After(now) {
		wakeAt = prev
	}
	return nextClose, wakeAt, wakeAt.Sub(now)
}

// IntervalTicker fires every interval, starting one interval from creation.
type IntervalTicker struct {
	t  *time.Ticker
	ch chan time.Time

	stop chan struct{}
	once sync.Once
}

func NewIntervalTicker(interval time.Duration) *IntervalTicker {
	if interval <= 0 {
		interval = time.Hour
	}
	it := &IntervalTicker{t: time.NewTicker(interval), ch: make(chan time.Time, 1), stop: make(chan struct{})}
	go func() {
		for {
			select {
			case <-it.stop:
				return
			case at := <-it.t.C:
				offer(it.ch, at)
			}
		}
	}()
	return it
}

func (t *IntervalTicker) C() <-chan time.Time { return t.ch }

func (t *IntervalTicker) Stop() {
	t.once.Do(func() {
		t.t.Stop()
		close(t.stop)
	})
}

// ManualTicker is driven explicitly, so cycles can run synchronously in tests.
type ManualTicker struct {
	ch   chan time.Time
	once sync.Once
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

// Tick blocks until the loop has received the tick.
func (t *ManualTicker) Tick(at time.Time) {
	t.ch <- at
}

// Stop closes the channel, which ends the loop.
func (t *ManualTicker) Stop() {
	t.once.Do(func() { close(t.ch) })
}
