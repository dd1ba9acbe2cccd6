package config

import (
	"strings"

	symbolpkg "signalbot/internal/pkg/symbol"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogFormat     = "text"
	defaultAppHTTPAddr      = ":9991"
	defaultMarketSource     = "binance"
	defaultMarketREST       = "https://fapi.binance.com"
	defaultMarketTimeframe  = "1h"
	defaultCandleLimit      = 100
	defaultUniverseQuote    = "USDT"
	defaultUniverseMax      = 30
	defaultMarketTimeout    = 15
	defaultScoringMode      = "classification"
	defaultScoringThreshold = 1.0
	defaultScoringProvider  = "rule"
	defaultScoringTimeout   = 10
	defaultMinConfluence    = 3
	defaultAlertMax         = 5
	defaultAlertWindow      = 60
	defaultAlertBackend     = "memory"
	defaultAlertRedisKey    = "signalbot:alerts"
	defaultInitialBalance   = 1000.0
	defaultLedgerFraction   = 0.05
	defaultLedgerMinTrade   = 10.0
	defaultSizingBasis      = "balance"
	defaultStopLossPct      = 5.0
	defaultTargetMode       = "volatility"
	defaultFixedTargetPct   = 10.0
	defaultMinTargetPct     = 2.5
	defaultVolatilityFactor = 3.0
	defaultMonitorMinutes   = 5
	defaultResolverInterval = 120
	defaultResolverCooldown = 24
	defaultResolverPageSize = 200
	defaultCycleInterval    = "1h"
	defaultCycleOffset      = 10
	defaultSummaryInterval  = 2
	defaultMaxParallel      = 8
	defaultStorePath        = "data/signalbot.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Scoring.applyDefaults(keys)
	c.Alert.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Position.applyDefaults(keys)
	c.Resolver.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	applyFieldDefaults(keys, stringFieldDefault("store.path", &c.Store.Path, defaultStorePath))
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.timeframe", &m.Timeframe, defaultMarketTimeframe),
		stringFieldDefault("market.universe_quote", &m.UniverseQuote, defaultUniverseQuote),
		intFieldDefault("market.candle_limit", &m.CandleLimit, defaultCandleLimit),
		intFieldDefault("market.universe_max", &m.UniverseMax, defaultUniverseMax),
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultMarketTimeout),
	)
	m.Source = strings.ToLower(strings.TrimSpace(m.Source))
	m.UniverseQuote = strings.ToUpper(strings.TrimSpace(m.UniverseQuote))
	m.Symbols = symbolpkg.NormalizeList(m.Symbols)
}

func (s *ScoringConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("scoring.mode", &s.Mode, defaultScoringMode),
		stringFieldDefault("scoring.provider", &s.Provider, defaultScoringProvider),
		floatFieldDefault("scoring.threshold", &s.Threshold, defaultScoringThreshold),
		intFieldDefault("scoring.timeout_seconds", &s.TimeoutSeconds, defaultScoringTimeout),
		intFieldDefault("scoring.min_confluence", &s.MinConfluence, defaultMinConfluence),
	)
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
}

func (a *AlertConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("alert.max_per_cycle", &a.MaxPerCycle, defaultAlertMax),
		intFieldDefault("alert.window_minutes", &a.WindowMinutes, defaultAlertWindow),
		stringFieldDefault("alert.window_backend", &a.WindowBackend, defaultAlertBackend),
		stringFieldDefault("alert.redis_key", &a.RedisKey, defaultAlertRedisKey),
	)
	a.WindowBackend = strings.ToLower(strings.TrimSpace(a.WindowBackend))
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("ledger.initial_balance", &l.InitialBalance, defaultInitialBalance),
		fieldDefault{
			key:   "ledger.fraction",
			need:  func() bool { return l.Fraction <= 0 || l.Fraction > 1 },
			apply: func() { l.Fraction = defaultLedgerFraction },
		},
		floatFieldDefault("ledger.min_trade", &l.MinTrade, defaultLedgerMinTrade),
		stringFieldDefault("ledger.sizing_basis", &l.SizingBasis, defaultSizingBasis),
	)
	l.SizingBasis = strings.ToLower(strings.TrimSpace(l.SizingBasis))
}

func (p *PositionConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("position.enabled", &p.Enabled, true),
		floatFieldDefault("position.stop_loss_pct", &p.StopLossPct, defaultStopLossPct),
		stringFieldDefault("position.target_mode", &p.TargetMode, defaultTargetMode),
		floatFieldDefault("position.fixed_target_pct", &p.FixedTargetPct, defaultFixedTargetPct),
		floatFieldDefault("position.min_target_pct", &p.MinTargetPct, defaultMinTargetPct),
		floatFieldDefault("position.volatility_factor", &p.VolatilityFactor, defaultVolatilityFactor),
		intFieldDefault("position.monitor_minutes", &p.MonitorMinutes, defaultMonitorMinutes),
	)
	p.TargetMode = strings.ToLower(strings.TrimSpace(p.TargetMode))
	if p.MaxHoldingHours < 0 {
		p.MaxHoldingHours = 0
	}
}

func (r *ResolverConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("resolver.interval_minutes", &r.IntervalMinutes, defaultResolverInterval),
		intFieldDefault("resolver.cooldown_hours", &r.CooldownHours, defaultResolverCooldown),
		intFieldDefault("resolver.page_size", &r.PageSize, defaultResolverPageSize),
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("schedule.cycle_interval", &s.CycleInterval, defaultCycleInterval),
		intFieldDefault("schedule.offset_seconds", &s.OffsetSeconds, defaultCycleOffset),
		boolFieldDefault("schedule.run_immediately", &s.RunImmediately, true),
		intFieldDefault("schedule.summary_interval_hours", &s.SummaryIntervalHours, defaultSummaryInterval),
		intFieldDefault("schedule.max_parallel", &s.MaxParallel, defaultMaxParallel),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
