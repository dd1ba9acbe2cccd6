package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"signalbot/internal/store"
	"signalbot/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SqliteStore is the document store backed by a single sqlite file. Each
// collection is a table; ids are generated client side.
type SqliteStore struct {
	db *gorm.DB
}

var _ store.Store = (*SqliteStore)(nil)

var migrations = []any{
	&model.SignalModel{},
	&model.PositionModel{},
	&model.RealizedTradeModel{},
	&model.AccountModel{},
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	// WAL lets the HTTP readers run while a cycle writes; busy_timeout absorbs short write contention.
	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewSqliteStoreFromDB(db)
}

// NewSqliteStoreFromDB migrates an existing handle, e.g. an in-memory db in tests.
func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, errors.New("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(migrations...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Signals() store.SignalRepository     { return NewSignalRepo(s.db) }
func (s *SqliteStore) Positions() store.PositionRepository { return NewPositionRepo(s.db) }
func (s *SqliteStore) Trades() store.TradeRepository       { return NewTradeRepo(s.db) }
func (s *SqliteStore) Account() store.AccountRepository    { return NewAccountRepo(s.db) }

// Begin opens a transaction; repositories obtained from the unit of work
// write inside it until Commit or Rollback.
func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type unitOfWork struct {
	tx   *gorm.DB
	done bool
}

func (u *unitOfWork) Positions() store.PositionRepository { return NewPositionRepo(u.tx) }
func (u *unitOfWork) Trades() store.TradeRepository       { return NewTradeRepo(u.tx) }

func (u *unitOfWork) Commit() error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.done = true
	return u.tx.Commit().Error
}

// Rollback is a no-op after Commit so callers can defer it.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}
