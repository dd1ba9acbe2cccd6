package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"signalbot/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src, err := New(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	return src
}

func TestFetchCandles(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[1700000000000,"100","110","95","105","12.5",1700003599999,"0",42,"0","0","0"],
			[1700003600000,"105","112","101","111","8",1700007199999,"0",30,"0","0","0"]
		]`))
	})

	candles, err := src.FetchCandles(context.Background(), "BTC/USDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 112.0, candles[1].High)
	assert.Equal(t, int64(42), candles[0].Trades)
}

func TestFetchPrice(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"2500.50","time":1700000000000}`))
	})

	price, err := src.FetchPrice(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, 2500.5, price)
}

func TestUnknownSymbolIsRecoverable(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := src.FetchPrice(context.Background(), "NOPE/USDT")
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)

	_, err = src.FetchCandles(context.Background(), "NOPE/USDT", "1h", 50)
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)
}

func TestListSymbols(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbols":[
			{"symbol":"SOLUSDT","status":"TRADING","quoteAsset":"USDT","contractType":"PERPETUAL"},
			{"symbol":"BTCUSDT","status":"TRADING","quoteAsset":"USDT","contractType":"PERPETUAL"},
			{"symbol":"ETHBTC","status":"TRADING","quoteAsset":"BTC","contractType":"PERPETUAL"},
			{"symbol":"XRPUSDT","status":"SETTLING","quoteAsset":"USDT","contractType":"PERPETUAL"},
			{"symbol":"ETHUSDT","status":"TRADING","quoteAsset":"USDT","contractType":"PERPETUAL"}
		]}`))
	})

	got, err := src.ListSymbols(context.Background(), "usdt", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, got)
}
