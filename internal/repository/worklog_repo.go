package repository

import (
	"context"
	"errors"

	"vouchersystem/internal/model"

	"gorm.io/gorm"
)

type WorkLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) *WorkLogRepository {
	return &WorkLogRepository{db: db}
}

// Create 追加一条工分记账
// 本表永远不会被 Update/Delete，仓储层只提供创建和查询
func (r *WorkLogRepository) Create(ctx context.Context, tx *gorm.DB, workLog *model.WorkLog) error {
	if tx == nil {
		tx = r.db
	}
	return storageErr(tx.WithContext(ctx).Create(workLog).Error)
}

func (r *WorkLogRepository) GetByRequestID(ctx context.Context, requestID string) (*model.WorkLog, error) {
	var workLog model.WorkLog
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&workLog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr(err)
	}
	return &workLog, nil
}

func (r *WorkLogRepository) ListByWalletID(ctx context.Context, walletID int64, page, pageSize int) ([]*model.WorkLog, int64, error) {
	var workLogs []*model.WorkLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WorkLog{}).Where("wallet_id = ?", walletID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, storageErr(err)
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&workLogs).Error

	return workLogs, total, storageErr(err)
}

// SumByWalletID 钱包全部工分之和，供对账使用
func (r *WorkLogRepository) SumByWalletID(ctx context.Context, walletID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkLog{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, storageErr(err)
	}
	return sum, nil
}
