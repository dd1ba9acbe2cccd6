package sqlite

import (
	"context"
	"errors"
	"strings"

	"signalbot/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) *tradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Append(ctx context.Context, trade *model.RealizedTradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	if strings.TrimSpace(trade.ID) == "" {
		trade.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *tradeRepository) ListRecent(ctx context.Context, limit int) ([]model.RealizedTradeModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.RealizedTradeModel
	if err := r.db.WithContext(ctx).
		Order("closed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
