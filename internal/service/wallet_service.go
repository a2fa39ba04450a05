package service

import (
	"context"
	"errors"

	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"

	"gorm.io/gorm"
)

type WalletService struct {
	db         *gorm.DB
	walletRepo *repository.WalletRepository
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: repository.NewWalletRepository(db),
	}
}

func (s *WalletService) GetWallet(ctx context.Context, walletID int64) (*model.Wallet, error) {
	return s.walletRepo.GetByID(ctx, walletID)
}

func (s *WalletService) GetWalletByMemberID(ctx context.Context, memberID int64) (*model.Wallet, error) {
	return s.walletRepo.GetByMemberID(ctx, memberID)
}

// GetBalance 查询成员余额
// 钱包是首次记账时才创建的，还没有钱包视作余额为 0
func (s *WalletService) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	wallet, err := s.walletRepo.GetByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}
