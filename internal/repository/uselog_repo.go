package repository

import (
	"context"
	"errors"

	"vouchersystem/internal/model"

	"gorm.io/gorm"
)

type UseLogRepository struct {
	db *gorm.DB
}

func NewUseLogRepository(db *gorm.DB) *UseLogRepository {
	return &UseLogRepository{db: db}
}

// Create 追加核销记录
// card_id 上的唯一索引是"一张券只核销一次"的最后一道防线
func (r *UseLogRepository) Create(ctx context.Context, tx *gorm.DB, useLog *model.UseLog) error {
	if tx == nil {
		tx = r.db
	}
	return storageErr(tx.WithContext(ctx).Create(useLog).Error)
}

func (r *UseLogRepository) GetByCardID(ctx context.Context, cardID int64) (*model.UseLog, error) {
	var useLog model.UseLog
	err := r.db.WithContext(ctx).Where("card_id = ?", cardID).First(&useLog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr(err)
	}
	return &useLog, nil
}

func (r *UseLogRepository) CountByCardID(ctx context.Context, cardID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UseLog{}).
		Where("card_id = ?", cardID).
		Count(&count).Error
	if err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

func (r *UseLogRepository) List(ctx context.Context, page, pageSize int) ([]*model.UseLog, int64, error) {
	var useLogs []*model.UseLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.UseLog{})

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, storageErr(err)
	}

	err = query.
		Order("used_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&useLogs).Error

	return useLogs, total, storageErr(err)
}
