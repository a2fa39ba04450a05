package repository

import (
	"context"
	"errors"
	"time"

	"vouchersystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCardNotFound      = errors.New("券不存在")
	ErrCardStatusInvalid = errors.New("券状态不合法")
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, tx *gorm.DB, card *model.Card) error {
	if tx == nil {
		tx = r.db
	}
	return storageErr(tx.WithContext(ctx).Create(card).Error)
}

func (r *CardRepository) GetByCardNo(ctx context.Context, cardNo string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Where("card_no = ?", cardNo).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, storageErr(err)
	}
	return &card, nil
}

func (r *CardRepository) GetByRequestID(ctx context.Context, requestID string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr(err)
	}
	return &card, nil
}

// UpdateStatus 状态 CAS 迁移
// WHERE 条件带上当前状态，0 行受影响说明并发方已抢先迁移
// ISSUED→USED 和 ISSUED→VOID 的"最多一次"保证全部落在这条语句上
func (r *CardRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, cardNo string, fromStatus, toStatus string, actor string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrCardStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.CardStatusVoid {
		now := time.Now()
		updates["voided_by"] = actor
		updates["voided_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.Card{}).
		Where("card_no = ? AND status = ?", cardNo, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return storageErr(result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrCardStatusInvalid
	}

	return nil
}

func (r *CardRepository) ListByWalletID(ctx context.Context, walletID int64, page, pageSize int) ([]*model.Card, int64, error) {
	var cards []*model.Card
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Card{}).Where("wallet_id = ?", walletID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, storageErr(err)
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&cards).Error

	return cards, total, storageErr(err)
}

// ListAllByWalletID 不分页，供余额重放对账使用
func (r *CardRepository) ListAllByWalletID(ctx context.Context, walletID int64) ([]*model.Card, error) {
	var cards []*model.Card
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id ASC").
		Find(&cards).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return cards, nil
}
