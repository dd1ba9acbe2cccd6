package app

import (
	"fmt"
	"strings"

	"signalbot/internal/config"
	"signalbot/internal/ledger"
	"signalbot/internal/scoring"
)

type StartupSummary struct {
	Market   MarketSummary
	Scoring  ScoringSummary
	Capital  CapitalSummary
	Schedule ScheduleSummary
}

type MarketSummary struct {
	Source    string
	Timeframe string
	Symbols   []string
	Universe  string
}

type ScoringSummary struct {
	Provider  string
	Mode      string
	Threshold float64
	Model     string
}

type CapitalSummary struct {
	Balance   string
	Fraction  float64
	MinTrade  float64
	Basis     string
	Positions bool
	Restored  int
	Target    string
	StopLoss  float64
}

type ScheduleSummary struct {
	Cycle    string
	Monitor  string
	Resolver string
	Summary  int
	HTTPAddr string
}

func newStartupSummary(cfg *config.Config, snap ledger.Snapshot, restored int, registry *scoring.ModelRegistry) *StartupSummary {
	model := "-"
	if registry != nil {
		model = registry.Path()
		if s, ok := registry.Snapshot(); ok {
			model = fmt.Sprintf("%s (%s v%d)", registry.Path(), s.Model.Name, s.Model.Version)
		}
	}
	target := fmt.Sprintf("volatility x%.1f (min %.2f%%)", cfg.Position.VolatilityFactor, cfg.Position.MinTargetPct)
	if cfg.Position.TargetMode == "fixed" {
		target = fmt.Sprintf("fixed %.2f%%", cfg.Position.FixedTargetPct)
	}
	return &StartupSummary{
		Market: MarketSummary{
			Source:    cfg.Market.Source,
			Timeframe: cfg.Market.Timeframe,
			Symbols:   cfg.Market.Symbols,
			Universe:  fmt.Sprintf("%s top %d", cfg.Market.UniverseQuote, cfg.Market.UniverseMax),
		},
		Scoring: ScoringSummary{
			Provider:  cfg.Scoring.Provider,
			Mode:      cfg.Scoring.Mode,
			Threshold: cfg.Scoring.Threshold,
			Model:     model,
		},
		Capital: CapitalSummary{
			Balance:   snap.Balance.StringFixed(2),
			Fraction:  cfg.Ledger.Fraction,
			MinTrade:  cfg.Ledger.MinTrade,
			Basis:     cfg.Ledger.SizingBasis,
			Positions: cfg.Position.Enabled,
			Restored:  restored,
			Target:    target,
			StopLoss:  cfg.Position.StopLossPct,
		},
		Schedule: ScheduleSummary{
			Cycle:    fmt.Sprintf("%s +%ds", cfg.Schedule.CycleInterval, cfg.Schedule.OffsetSeconds),
			Monitor:  cfg.Position.MonitorInterval().String(),
			Resolver: cfg.Resolver.Interval().String(),
			Summary:  cfg.Schedule.SummaryIntervalHours,
			HTTPAddr: cfg.App.HTTPAddr,
		},
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[行情 (MARKET)]")
	fmt.Printf("  行情源: %s  周期: %s\n", s.Market.Source, s.Market.Timeframe)
	if len(s.Market.Symbols) > 0 {
		fmt.Printf("  监控币种: %s\n", formatList(s.Market.Symbols))
	} else {
		fmt.Printf("  监控币种: 自动发现 (%s)\n", s.Market.Universe)
	}
	fmt.Println()

	fmt.Println("[打分 (SCORING)]")
	fmt.Printf("  提供方: %s  模式: %s  阈值: %.2f\n", s.Scoring.Provider, s.Scoring.Mode, s.Scoring.Threshold)
	fmt.Printf("  模型: %s\n", s.Scoring.Model)
	fmt.Println()

	fmt.Println("[资金与仓位 (CAPITAL)]")
	fmt.Printf("  余额: %s  比例: %.2f%%  最小下单: %.2f  基数: %s\n", s.Capital.Balance, s.Capital.Fraction*100, s.Capital.MinTrade, s.Capital.Basis)
	if s.Capital.Positions {
		fmt.Printf("  虚拟仓位: 启用  止盈: %s  止损: %.2f%%  恢复持仓: %d\n", s.Capital.Target, s.Capital.StopLoss, s.Capital.Restored)
	} else {
		fmt.Println("  虚拟仓位: 关闭")
	}
	fmt.Println()

	fmt.Println("[调度 (SCHEDULE)]")
	fmt.Printf("  扫描: %s  持仓监控: %s  结果回填: %s  汇总: %dh\n", s.Schedule.Cycle, s.Schedule.Monitor, s.Schedule.Resolver, s.Schedule.Summary)
	fmt.Printf("  HTTP: %s\n", s.Schedule.HTTPAddr)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
