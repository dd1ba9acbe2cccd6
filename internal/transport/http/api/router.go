package apihttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"signalbot/internal/ledger"
	"signalbot/internal/logger"
	"signalbot/internal/outcome"
	"signalbot/internal/position"
	"signalbot/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type AccountReader interface {
	Snapshot() ledger.Snapshot
}

type PositionLister interface {
	List() []position.Position
}

type Sweeper interface {
	ResolveSweep(ctx context.Context) (outcome.Summary, error)
}

// Router 暴露账户、持仓、成交与信号查询接口。
type Router struct {
	Account   AccountReader
	Positions PositionLister
	Trades    store.TradeRepository
	Signals   store.SignalRepository
	Resolver  Sweeper
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/account", r.handleAccount)
	group.GET("/positions", r.handlePositions)
	group.GET("/trades", r.handleTrades)
	group.GET("/signals", r.handleSignals)
	group.POST("/resolver/run", r.handleResolverRun)
}

func (r *Router) handleAccount(c *gin.Context) {
	if r.Account == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}
	snap := r.Account.Snapshot()
	open := 0
	if r.Positions != nil {
		open = len(r.Positions.List())
	}
	c.JSON(http.StatusOK, accountResponse{
		Balance:       snap.Balance.StringFixed(2),
		Principal:     snap.Principal.StringFixed(2),
		Fraction:      snap.Fraction.String(),
		MinTrade:      snap.MinTrade.StringFixed(2),
		SizingBasis:   string(snap.Basis),
		OpenPositions: open,
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	if r.Positions == nil {
		c.JSON(http.StatusOK, gin.H{"positions": []positionResponse{}})
		return
	}
	list := r.Positions.List()
	out := make([]positionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPositionResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (r *Router) handleTrades(c *gin.Context) {
	if r.Trades == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade store unavailable"})
		return
	}
	rows, err := r.Trades.ListRecent(c.Request.Context(), parseLimit(c.Query("limit")))
	if err != nil {
		logger.Errorf("http: list trades failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]tradeResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTradeResponse(position.TradeFromModel(row)))
	}
	c.JSON(http.StatusOK, gin.H{"trades": out})
}

func (r *Router) handleSignals(c *gin.Context) {
	if r.Signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal store unavailable"})
		return
	}
	rows, err := r.Signals.ListRecent(c.Request.Context(), parseLimit(c.Query("limit")))
	if err != nil {
		logger.Errorf("http: list signals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]signalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSignalResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"signals": out})
}

func (r *Router) handleResolverRun(c *gin.Context) {
	if r.Resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "resolver unavailable"})
		return
	}
	sum, err := r.Resolver.ResolveSweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": sum})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum})
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
