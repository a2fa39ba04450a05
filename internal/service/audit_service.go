package service

import (
	"context"

	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"

	"gorm.io/gorm"
)

// AuditService 账本对账
// 从只追加的记账流水和券的当前状态重放出钱包应有的余额：
//
//	余额 = Σ工分 - Σ(ISSUED/USED 状态券的面额)
//
// 作废的券面额已退回，重放时不计
type AuditService struct {
	db          *gorm.DB
	walletRepo  *repository.WalletRepository
	workLogRepo *repository.WorkLogRepository
	cardRepo    *repository.CardRepository
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{
		db:          db,
		walletRepo:  repository.NewWalletRepository(db),
		workLogRepo: repository.NewWorkLogRepository(db),
		cardRepo:    repository.NewCardRepository(db),
	}
}

// ReplayBalance 重放计算钱包应有余额
func (s *AuditService) ReplayBalance(ctx context.Context, walletID int64) (int64, error) {
	accrued, err := s.workLogRepo.SumByWalletID(ctx, walletID)
	if err != nil {
		return 0, err
	}

	cards, err := s.cardRepo.ListAllByWalletID(ctx, walletID)
	if err != nil {
		return 0, err
	}

	var debited int64
	for _, card := range cards {
		if card.Status == model.CardStatusIssued || card.Status == model.CardStatusUsed {
			debited += card.Amount
		}
	}

	return accrued - debited, nil
}

// AuditReport 单个钱包的对账结果
type AuditReport struct {
	WalletID int64 `json:"wallet_id"`
	Stored   int64 `json:"stored"`   // 钱包行上的余额
	Replayed int64 `json:"replayed"` // 流水重放出的余额
	Matched  bool  `json:"matched"`
}

// VerifyWallet 核对钱包余额与流水重放结果
func (s *AuditService) VerifyWallet(ctx context.Context, walletID int64) (*AuditReport, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	replayed, err := s.ReplayBalance(ctx, walletID)
	if err != nil {
		return nil, err
	}

	return &AuditReport{
		WalletID: walletID,
		Stored:   wallet.Balance,
		Replayed: replayed,
		Matched:  wallet.Balance == replayed,
	}, nil
}
