package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"signalbot/internal/store"
	"signalbot/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultPageSize = 200

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) *signalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Add(ctx context.Context, sig *model.SignalModel) (string, error) {
	if sig == nil {
		return "", errors.New("signal cannot be nil")
	}
	if strings.TrimSpace(sig.ID) == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAtUnix == 0 {
		sig.CreatedAtUnix = time.Now().UnixMilli()
	}
	if err := r.db.WithContext(ctx).Create(sig).Error; err != nil {
		return "", err
	}
	return sig.ID, nil
}

func (r *signalRepository) Get(ctx context.Context, id string) (*model.SignalModel, error) {
	var sig model.SignalModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *signalRepository) ListPending(ctx context.Context, after store.Cursor, limit int) ([]model.SignalModel, store.Cursor, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	q := r.db.WithContext(ctx).Where("result IS NULL")
	if !after.IsZero() {
		q = q.Where("(timestamp > ?) OR (timestamp = ? AND id > ?)", after.TimestampUnix, after.TimestampUnix, after.ID)
	}
	var rows []model.SignalModel
	if err := q.Order("timestamp ASC, id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, store.Cursor{}, err
	}
	if len(rows) < limit {
		return rows, store.Cursor{}, nil
	}
	last := rows[len(rows)-1]
	return rows, store.Cursor{TimestampUnix: last.TimestampUnix, ID: last.ID}, nil
}

func (r *signalRepository) Resolve(ctx context.Context, id string, result float64, at, notBefore time.Time) (bool, error) {
	resolvedAt := at.UnixMilli()
	res := r.db.WithContext(ctx).
		Model(&model.SignalModel{}).
		Where("id = ? AND result IS NULL AND (resolved_at IS NULL OR resolved_at < ?)", id, notBefore.UnixMilli()).
		Updates(map[string]any{"result": result, "resolved_at": resolvedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *signalRepository) ListRecent(ctx context.Context, limit int) ([]model.SignalModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.SignalModel
	if err := r.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *signalRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SignalModel{}).Where("timestamp >= ?", since.UnixMilli()).Count(&n).Error
	return n, err
}
