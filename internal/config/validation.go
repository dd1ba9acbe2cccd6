package config

import (
	"fmt"
	"strings"

	"signalbot/internal/scheduler"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	switch c.App.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", c.App.LogFormat)
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Scoring.validate(); err != nil {
		return err
	}
	if err := c.Alert.validate(); err != nil {
		return err
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Position.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if m.Source != defaultMarketSource {
		return fmt.Errorf("market.source %q is not supported", m.Source)
	}
	if strings.TrimSpace(m.RESTBaseURL) == "" {
		return fmt.Errorf("market.rest_base_url cannot be empty")
	}
	if _, ok := scheduler.ParseIntervalDuration(m.Timeframe); !ok {
		return fmt.Errorf("market.timeframe %q is invalid", m.Timeframe)
	}
	if m.CandleLimit < 35 {
		return fmt.Errorf("market.candle_limit must be >= 35 to warm up indicators")
	}
	return nil
}

func (s *ScoringConfig) validate() error {
	switch s.Mode {
	case "classification", "regression":
	default:
		return fmt.Errorf("scoring.mode must be classification or regression, got %q", s.Mode)
	}
	switch s.Provider {
	case "rule":
		if s.Mode != "classification" {
			return fmt.Errorf("scoring.provider=rule only supports classification mode")
		}
	case "linear":
		if strings.TrimSpace(s.ModelPath) == "" {
			return fmt.Errorf("scoring.provider=linear requires scoring.model_path")
		}
	case "http":
		if strings.TrimSpace(s.Endpoint) == "" {
			return fmt.Errorf("scoring.provider=http requires scoring.endpoint")
		}
	default:
		return fmt.Errorf("scoring.provider %q is not supported", s.Provider)
	}
	if s.MinConfluence > 5 {
		return fmt.Errorf("scoring.min_confluence must be <= 5")
	}
	return nil
}

func (a *AlertConfig) validate() error {
	switch a.WindowBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(a.RedisAddr) == "" {
			return fmt.Errorf("alert.window_backend=redis requires alert.redis_addr")
		}
	default:
		return fmt.Errorf("alert.window_backend %q is not supported", a.WindowBackend)
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	if l.InitialBalance < 0 {
		return fmt.Errorf("ledger.initial_balance must be >= 0")
	}
	if l.MinTrade < 0 {
		return fmt.Errorf("ledger.min_trade must be >= 0")
	}
	switch l.SizingBasis {
	case "balance", "principal":
	default:
		return fmt.Errorf("ledger.sizing_basis must be balance or principal, got %q", l.SizingBasis)
	}
	return nil
}

func (p *PositionConfig) validate() error {
	switch p.TargetMode {
	case "volatility", "fixed":
	default:
		return fmt.Errorf("position.target_mode must be volatility or fixed, got %q", p.TargetMode)
	}
	if p.StopLossPct <= 0 {
		return fmt.Errorf("position.stop_loss_pct must be > 0")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(s.CycleInterval); !ok {
		return fmt.Errorf("schedule.cycle_interval %q is invalid", s.CycleInterval)
	}
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("schedule.offset_seconds must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
