package sqlite

import (
	"context"
	"errors"

	"signalbot/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Load(ctx context.Context) (*model.AccountModel, error) {
	var acct model.AccountModel
	err := r.db.WithContext(ctx).Where("id = ?", model.AccountSingletonID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *accountRepository) Save(ctx context.Context, acct *model.AccountModel) error {
	if acct == nil {
		return errors.New("account cannot be nil")
	}
	acct.ID = model.AccountSingletonID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(acct).Error
}
