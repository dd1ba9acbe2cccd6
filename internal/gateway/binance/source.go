package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"signalbot/internal/market"
	symbolpkg "signalbot/internal/pkg/symbol"
	"signalbot/internal/pkg/utils"
	"signalbot/internal/scheduler"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	maxHistoryLimit = 1500
	// Binance: -1121 Invalid symbol.
	codeInvalidSymbol = -1121
)

// Source 基于 go-binance futures SDK 实现 market.Feed 与 market.UniverseLister。
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	clean, err := exchangeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if timeframe == "" {
		return nil, fmt.Errorf("timeframe is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(clean).Interval(timeframe).Limit(limit).Do(ctx)
	if err != nil {
		return nil, wrapErr(symbol, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      utils.ParseFloat(kl.Open),
			High:      utils.ParseFloat(kl.High),
			Low:       utils.ParseFloat(kl.Low),
			Close:     utils.ParseFloat(kl.Close),
			Volume:    utils.ParseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if s.cfg.DropUnclosed {
		if dur, ok := scheduler.ParseIntervalDuration(timeframe); ok {
			out = scheduler.DropUnclosedKline(out, dur)
		}
	}
	return out, nil
}

func (s *Source) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	clean, err := exchangeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	prices, err := s.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return 0, wrapErr(symbol, err)
	}
	for _, p := range prices {
		if p == nil || !strings.EqualFold(p.Symbol, clean) {
			continue
		}
		price := utils.ParseFloat(p.Price)
		if price <= 0 {
			return 0, fmt.Errorf("%s: non-positive price %q", symbol, p.Price)
		}
		return price, nil
	}
	return 0, fmt.Errorf("%s: %w", symbol, market.ErrUnknownSymbol)
}

// ListSymbols returns trading perpetual pairs quoted in quote, sorted, capped at max.
func (s *Source) ListSymbols(ctx context.Context, quote string, max int) ([]string, error) {
	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}
	quote = strings.ToUpper(strings.TrimSpace(quote))
	out := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" || !strings.EqualFold(sym.QuoteAsset, quote) {
			continue
		}
		if sym.ContractType != "" && sym.ContractType != futures.ContractTypePerpetual {
			continue
		}
		if norm := symbolpkg.FromBinance(sym.Symbol); norm != "" {
			out = append(out, norm)
		}
	}
	sort.Strings(out)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func exchangeSymbol(symbol string) (string, error) {
	clean := symbolpkg.ToBinance(symbol)
	if clean == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return clean, nil
}

func wrapErr(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
		return fmt.Errorf("%s: %w: %s", symbol, market.ErrUnknownSymbol, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", symbol, err)
}
