package gateway

import (
	"fmt"

	"signalbot/internal/config"
	"signalbot/internal/gateway/binance"
)

// NewFeedFromConfig builds the configured market data source.
func NewFeedFromConfig(cfg config.MarketConfig) (*binance.Source, error) {
	switch cfg.Source {
	case "", "binance", "binance-futures":
		return binance.New(binance.Config{
			RESTBaseURL:  cfg.RESTBaseURL,
			HTTPTimeout:  cfg.HTTPTimeout(),
			ProxyURL:     cfg.ProxyURL,
			DropUnclosed: true,
		})
	default:
		return nil, fmt.Errorf("unsupported market source: %s", cfg.Source)
	}
}
