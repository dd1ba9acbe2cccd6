package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"signalbot/internal/logger"
)

// Ticker delivers the instants at which a Loop runs its task. Stop must be
// safe to call more than once.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Task is one unit of scheduled work; at is the tick instant.
type Task func(ctx context.Context, at time.Time)

// Loop runs Task on every tick until ctx is cancelled or the ticker closes.
// The tickers hold at most one pending tick: the first tick that arrives while
// the task is running is kept and runs as soon as the task returns, later ones
// are dropped until it has been received.
type Loop struct {
	Name           string
	Ticker         Ticker
	Task           Task
	RunImmediately bool

	nowFn func() time.Time
}

func NewLoop(name string, ticker Ticker, task Task) *Loop {
	return &Loop{Name: name, Ticker: ticker, Task: task, nowFn: time.Now}
}

func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.Task == nil {
		return fmt.Errorf("scheduler: loop has no task")
	}
	if l.Ticker == nil {
		return fmt.Errorf("scheduler: loop %s has no ticker", l.Name)
	}
	defer l.Ticker.Stop()
	if l.nowFn == nil {
		l.nowFn = time.Now
	}
	logger.Infof("scheduler %s: started run_immediately=%v", l.Name, l.RunImmediately)
	if l.RunImmediately {
		l.RunOnce(ctx, l.nowFn())
	}
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler %s: ctx done, exit", l.Name)
			return nil
		case at, ok := <-l.Ticker.C():
			if !ok {
				logger.Infof("scheduler %s: ticker closed, exit", l.Name)
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			l.RunOnce(ctx, at)
		}
	}
}

// RunOnce executes a single iteration synchronously. A panicking task is
// logged and swallowed so the next tick still runs.
func (l *Loop) RunOnce(ctx context.Context, at time.Time) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler %s: task panic: %v\n%s", l.Name, r, debug.Stack())
		}
	}()
	l.Task(ctx, at)
	logger.Debugf("scheduler %s: tick=%s duration=%s", l.Name, at.UTC().Format(time.RFC3339), time.Since(start).Truncate(time.Millisecond))
}
