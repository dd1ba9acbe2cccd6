package symbol

import (
	"strings"
)

// knownQuotes is checked in order when a pair is given without a separator.
var knownQuotes = []string{"USDT", "USDC", "FDUSD", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// Symbol is a base/quote pair. The canonical form used across the bot is "BASE/QUOTE".
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) String() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

func (s Symbol) Valid() bool {
	return s.Base != "" && s.Quote != ""
}

// Parse accepts "BTC/USDT", "btcusdt" and ccxt style "BTC/USDT:USDT".
func Parse(raw string) Symbol {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return Symbol{}
	}
	if idx := strings.Index(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}
	if base, quote, ok := strings.Cut(raw, "/"); ok {
		return Symbol{Base: strings.TrimSpace(base), Quote: strings.TrimSpace(quote)}
	}
	for _, quote := range knownQuotes {
		if strings.HasSuffix(raw, quote) && len(raw) > len(quote) {
			return Symbol{Base: raw[:len(raw)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

func Normalize(raw string) string {
	return Parse(raw).String()
}

// NormalizeList normalizes and de-duplicates while keeping first-seen order.
// Entries that cannot be parsed are kept upper-cased so the feed can reject them per call.
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			norm = strings.ToUpper(strings.TrimSpace(s))
			if norm == "" {
				continue
			}
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// HasQuote reports whether raw parses to a pair quoted in quote.
func HasQuote(raw, quote string) bool {
	return Parse(raw).Quote == strings.ToUpper(strings.TrimSpace(quote))
}
