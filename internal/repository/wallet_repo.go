package repository

import (
	"context"
	"errors"
	"time"

	"vouchersystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound   = errors.New("钱包不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrOptimisticLock   = errors.New("乐观锁冲突，请重试")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByID(ctx context.Context, walletID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("id = ?", walletID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, storageErr(err)
	}
	return &wallet, nil
}

func (r *WalletRepository) GetByMemberID(ctx context.Context, memberID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, storageErr(err)
	}
	return &wallet, nil
}

// GetOrCreateByMemberID 首次记账时惰性创建钱包
// OnConflict DoNothing 保证并发创建时只落一行
func (r *WalletRepository) GetOrCreateByMemberID(ctx context.Context, memberID int64) (*model.Wallet, error) {
	wallet, err := r.GetByMemberID(ctx, memberID)
	if err == nil {
		return wallet, nil
	}

	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	newWallet := &model.Wallet{
		MemberID: memberID,
		Balance:  0,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			DoNothing: true,
		}).
		Create(newWallet).Error

	if err != nil {
		return nil, storageErr(err)
	}

	return r.GetByMemberID(ctx, memberID)
}

// Debit 扣减余额（发券）
// 条件更新同时校验余额充足和版本号，0 行受影响时回查区分两种失败
func (r *WalletRepository) Debit(ctx context.Context, tx *gorm.DB, walletID int64, amount int64, version int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND balance >= ? AND version = ?", walletID, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return storageErr(result.Error)
	}

	if result.RowsAffected == 0 {
		// 同一事务内回查，区分余额不足和版本冲突
		var wallet model.Wallet
		if err := tx.WithContext(ctx).Where("id = ?", walletID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return storageErr(err)
		}
		if wallet.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}

// Credit 增加余额（记账、作废退回）
func (r *WalletRepository) Credit(ctx context.Context, tx *gorm.DB, walletID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return storageErr(result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}

	return nil
}

// ListUpdatedSince 查询最近有变动的钱包，供对账任务使用
func (r *WalletRepository) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	err := r.db.WithContext(ctx).
		Where("updated_at >= ?", since).
		Limit(limit).
		Find(&wallets).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return wallets, nil
}
