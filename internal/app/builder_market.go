package app

import (
	"fmt"

	"signalbot/internal/config"
	"signalbot/internal/gateway"
	"signalbot/internal/logger"
)

func buildFeed(cfg config.MarketConfig) (MarketFeed, error) {
	src, err := gateway.NewFeedFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化行情源失败: %w", err)
	}
	if len(cfg.Symbols) > 0 {
		logger.Infof("✓ 行情源 %s 已就绪，监控 %d 个交易对", cfg.Source, len(cfg.Symbols))
	} else {
		logger.Infof("✓ 行情源 %s 已就绪，首轮扫描时发现 %s 交易对（上限 %d）", cfg.Source, cfg.UniverseQuote, cfg.UniverseMax)
	}
	return src, nil
}
