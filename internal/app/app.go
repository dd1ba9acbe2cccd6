package app

import (
	"context"
	"fmt"
	"time"

	"signalbot/internal/config"
	"signalbot/internal/engine"
	"signalbot/internal/gateway/notifier"
	"signalbot/internal/logger"
	"signalbot/internal/scheduler"
	"signalbot/internal/scoring"
	apihttp "signalbot/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动扫描、持仓监控、结果回填与 HTTP 服务。
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	registry *scoring.ModelRegistry
	notifier *notifier.Dispatcher
	http     *apihttp.Server
	closers  []func() error
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts every loop and blocks until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}

	cycleEvery, _ := scheduler.ParseIntervalDuration(a.cfg.Schedule.CycleInterval)
	offset := time.Duration(a.cfg.Schedule.OffsetSeconds) * time.Second

	group, ctx := errgroup.WithContext(ctx)

	cycle := scheduler.NewLoop("cycle", scheduler.NewAlignedTicker(cycleEvery, offset), a.runCycle)
	cycle.RunImmediately = a.cfg.Schedule.RunImmediately
	group.Go(func() error { return cycle.Run(ctx) })

	if a.cfg.Position.Enabled {
		monitor := scheduler.NewLoop("monitor", scheduler.NewIntervalTicker(a.cfg.Position.MonitorInterval()), a.runMonitor)
		group.Go(func() error { return monitor.Run(ctx) })
	}

	resolver := scheduler.NewLoop("resolver", scheduler.NewIntervalTicker(a.cfg.Resolver.Interval()), a.runResolver)
	group.Go(func() error { return resolver.Run(ctx) })

	if a.registry != nil {
		group.Go(func() error {
			if err := a.registry.Watch(ctx); err != nil {
				logger.Warnf("model watch stopped: %v", err)
			}
			return nil
		})
	}

	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

func (a *App) runCycle(ctx context.Context, at time.Time) {
	if _, err := a.engine.RunCycle(ctx, at); err != nil {
		logger.Warnf("cycle: %v", err)
	}
	a.engine.MaybeSummarize(ctx, at)
}

func (a *App) runMonitor(ctx context.Context, _ time.Time) {
	if _, err := a.engine.MonitorPositions(ctx); err != nil {
		logger.Warnf("monitor: %v", err)
	}
}

func (a *App) runResolver(ctx context.Context, _ time.Time) {
	if _, err := a.engine.ResolveSweep(ctx); err != nil {
		logger.Warnf("resolver: %v", err)
	}
}

// Engine exposes the pipeline, mainly for tests and replay harnesses.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Close drains pending notifications and releases the store.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("app close: %v", err)
		}
	}
	a.closers = nil
}
