package app

import (
	"context"
	"fmt"

	"signalbot/internal/alert"
	"signalbot/internal/config"
	"signalbot/internal/gateway/notifier"
	"signalbot/internal/logger"
	"signalbot/internal/scoring"
	"signalbot/internal/signal"
)

// buildScorer picks the scoring collaborator. Only the linear provider
// returns a registry, which the app then watches for file changes.
func buildScorer(cfg config.ScoringConfig) (signal.Scorer, *scoring.ModelRegistry, error) {
	switch cfg.Provider {
	case "rule":
		logger.Infof("✓ 打分：规则共振 (min_confluence=%d)", cfg.MinConfluence)
		return scoring.NewRuleScorer(cfg.MinConfluence), nil, nil
	case "linear":
		reg, err := scoring.NewModelRegistry(cfg.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("✓ 打分：线性模型 %s", reg.Path())
		return reg, reg, nil
	case "http":
		logger.Infof("✓ 打分：HTTP 模型服务 %s", cfg.Endpoint)
		return scoring.NewHTTPScorer(cfg.Endpoint, cfg.Timeout()), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported scoring provider: %s", cfg.Provider)
	}
}

func buildWindow(ctx context.Context, cfg config.AlertConfig) (alert.Window, func() error, error) {
	switch cfg.WindowBackend {
	case "redis":
		w, err := alert.NewRedisWindow(ctx, alert.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, cfg.Window())
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("✓ 告警窗口：redis %s key=%s", cfg.RedisAddr, cfg.RedisKey)
		return w, w.Close, nil
	default:
		return alert.NewMemoryWindow(cfg.Window()), nil, nil
	}
}

// buildNotifier degrades to log output when Telegram is not configured or fails to start.
func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		logger.Infof("Telegram 未启用，通知写入日志")
		return notifier.LogNotifier{}
	}
	tg, err := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warnf("Telegram 初始化失败，通知写入日志: %v", err)
		return notifier.LogNotifier{}
	}
	logger.Infof("✓ Telegram 通知已启用")
	return tg
}
