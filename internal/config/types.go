package config

import (
	"strings"
	"time"
)

// Config 是 signalbot 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Alert    AlertConfig    `toml:"alert"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Position PositionConfig `toml:"position"`
	Resolver ResolverConfig `toml:"resolver"`
	Schedule ScheduleConfig `toml:"schedule"`
	Store    StoreConfig    `toml:"store"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	HTTPAddr  string `toml:"http_addr"`
	LogPath   string `toml:"log_path"`
}

// MarketConfig 描述行情源与监控币种范围。
type MarketConfig struct {
	Source             string   `toml:"source"`
	RESTBaseURL        string   `toml:"rest_base_url"`
	ProxyURL           string   `toml:"proxy_url"`
	Timeframe          string   `toml:"timeframe"`
	CandleLimit        int      `toml:"candle_limit"`
	Symbols            []string `toml:"symbols"`
	UniverseQuote      string   `toml:"universe_quote"`
	UniverseMax        int      `toml:"universe_max"`
	HTTPTimeoutSeconds int      `toml:"http_timeout_seconds"`
}

func (m MarketConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

// ScoringConfig 描述外部打分模型以及准入规则。
type ScoringConfig struct {
	Mode           string  `toml:"mode"`
	Threshold      float64 `toml:"threshold"`
	Provider       string  `toml:"provider"`
	ModelPath      string  `toml:"model_path"`
	Endpoint       string  `toml:"endpoint"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MinConfluence  int     `toml:"min_confluence"`
}

func (s ScoringConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type AlertConfig struct {
	MaxPerCycle   int    `toml:"max_per_cycle"`
	WindowMinutes int    `toml:"window_minutes"`
	WindowBackend string `toml:"window_backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisKey      string `toml:"redis_key"`
}

func (a AlertConfig) Window() time.Duration {
	return time.Duration(a.WindowMinutes) * time.Minute
}

// LedgerConfig 控制虚拟资金与仓位规模。
type LedgerConfig struct {
	InitialBalance float64 `toml:"initial_balance"`
	Fraction       float64 `toml:"fraction"`
	MinTrade       float64 `toml:"min_trade"`
	SizingBasis    string  `toml:"sizing_basis"`
}

type PositionConfig struct {
	Enabled          bool    `toml:"enabled"`
	StopLossPct      float64 `toml:"stop_loss_pct"`
	TargetMode       string  `toml:"target_mode"`
	FixedTargetPct   float64 `toml:"fixed_target_pct"`
	MinTargetPct     float64 `toml:"min_target_pct"`
	VolatilityFactor float64 `toml:"volatility_factor"`
	MaxHoldingHours  int     `toml:"max_holding_hours"`
	// MonitorMinutes is how often open positions are checked against their exits.
	MonitorMinutes int `toml:"monitor_minutes"`
}

func (p PositionConfig) MaxHolding() time.Duration {
	return time.Duration(p.MaxHoldingHours) * time.Hour
}

func (p PositionConfig) MonitorInterval() time.Duration {
	return time.Duration(p.MonitorMinutes) * time.Minute
}

type ResolverConfig struct {
	IntervalMinutes int `toml:"interval_minutes"`
	CooldownHours   int `toml:"cooldown_hours"`
	PageSize        int `toml:"page_size"`
}

func (r ResolverConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

func (r ResolverConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

type ScheduleConfig struct {
	CycleInterval        string `toml:"cycle_interval"`
	OffsetSeconds        int    `toml:"offset_seconds"`
	RunImmediately       bool   `toml:"run_immediately"`
	SummaryIntervalHours int    `toml:"summary_interval_hours"`
	MaxParallel          int    `toml:"max_parallel"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 记录配置文件中显式出现过的键，避免默认值覆盖用户显式写入的零值。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
