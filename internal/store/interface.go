package store

import (
	"context"
	"time"

	"signalbot/internal/store/model"
)

// Store is the entry point for persistence.
type Store interface {
	Signals() SignalRepository
	Positions() PositionRepository
	Trades() TradeRepository
	Account() AccountRepository
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	Close() error
}

// UnitOfWork groups writes that must land together, e.g. closing a position
// and appending its realized trade.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	Positions() PositionRepository
	Trades() TradeRepository
}

// Cursor is an opaque continuation point for paginated reads.
type Cursor struct {
	TimestampUnix int64
	ID            string
}

func (c Cursor) IsZero() bool { return c.TimestampUnix == 0 && c.ID == "" }

// SignalRepository handles the 'signals' collection.
type SignalRepository interface {
	// Add assigns a generated id when sig.ID is empty and returns it.
	Add(ctx context.Context, sig *model.SignalModel) (string, error)
	Get(ctx context.Context, id string) (*model.SignalModel, error)
	// ListPending streams signals with no result, ordered by (timestamp, id),
	// starting strictly after the cursor. The returned cursor is zero when exhausted.
	ListPending(ctx context.Context, after Cursor, limit int) ([]model.SignalModel, Cursor, error)
	// Resolve writes the result only if the signal is still pending and was not
	// resolved after notBefore. It reports whether a row was written.
	Resolve(ctx context.Context, id string, result float64, at, notBefore time.Time) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]model.SignalModel, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// PositionRepository mirrors the active position set.
type PositionRepository interface {
	Save(ctx context.Context, pos *model.PositionModel) error
	Delete(ctx context.Context, id string) error
	ListOpen(ctx context.Context) ([]model.PositionModel, error)
}

// TradeRepository handles the append-only realized trades.
type TradeRepository interface {
	Append(ctx context.Context, trade *model.RealizedTradeModel) error
	ListRecent(ctx context.Context, limit int) ([]model.RealizedTradeModel, error)
}

// AccountRepository persists the single capital account record.
type AccountRepository interface {
	// Load returns nil, nil when no checkpoint exists yet.
	Load(ctx context.Context) (*model.AccountModel, error)
	Save(ctx context.Context, acct *model.AccountModel) error
}
