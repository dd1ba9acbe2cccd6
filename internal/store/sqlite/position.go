package sqlite

import (
	"context"
	"errors"
	"time"

	"signalbot/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepo(db *gorm.DB) *positionRepository {
	return &positionRepository{db: db}
}

// Save upserts by id.
func (r *positionRepository) Save(ctx context.Context, pos *model.PositionModel) error {
	if pos == nil {
		return errors.New("position cannot be nil")
	}
	pos.UpdatedAtUnix = time.Now().UnixMilli()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(pos).Error
}

func (r *positionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PositionModel{}).Error
}

func (r *positionRepository) ListOpen(ctx context.Context) ([]model.PositionModel, error) {
	var rows []model.PositionModel
	if err := r.db.WithContext(ctx).
		Where("state = ?", model.PositionStateOpen).
		Order("opened_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
