package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"vouchersystem/internal/config"
	"vouchersystem/internal/infrastructure/lock"
	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"
	"vouchersystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type RedemptionService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	cardRepo    *repository.CardRepository
	useLogRepo  *repository.UseLogRepository
	outboxRepo  *repository.OutboxRepository
}

func NewRedemptionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RedemptionService {
	return &RedemptionService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		cardRepo:    repository.NewCardRepository(db),
		useLogRepo:  repository.NewUseLogRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// RedeemCard 核销券
//
// 【关键点】这是整个系统的核心正确性保证：
// 任意并发的核销请求里最多只有一个成功
// 1. ISSUED→USED 由状态 CAS 完成，同一张券只有一个请求能更新到
// 2. 核销记录与状态迁移同一事务，不会出现核销了却没有记录的状态
// 3. 核销不触碰余额 —— 扣减在发券时已经发生
func (s *RedemptionService) RedeemCard(ctx context.Context, cardNo string, usedBy string, useContext string) (*model.UseLog, error) {
	card, err := s.cardRepo.GetByCardNo(ctx, cardNo)
	if err != nil {
		return nil, err
	}

	if err := cardStatusError(card.Status); err != nil {
		return nil, err
	}

	useNo := idgen.GenerateUseNo()

	// 获取券锁，与作废互斥
	cardLock := lock.NewCardLock(s.redisClient, cardNo, useNo)
	if err := cardLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentionExceeded, err)
	}
	defer cardLock.Unlock(ctx)

	useLog := &model.UseLog{
		UseNo:   useNo,
		CardID:  card.ID,
		UsedBy:  usedBy,
		Context: useContext,
		UsedAt:  time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 状态 CAS：输掉竞争的请求在这里拿到 0 行受影响
		if err := s.cardRepo.UpdateStatus(ctx, tx, cardNo, model.CardStatusIssued, model.CardStatusUsed, usedBy); err != nil {
			return err
		}

		if err := s.useLogRepo.Create(ctx, tx, useLog); err != nil {
			return fmt.Errorf("写入核销记录失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"event":     model.EventCardUsed,
			"card_no":   cardNo,
			"use_no":    useNo,
			"wallet_id": card.WalletID,
			"amount":    card.Amount,
			"used_by":   usedBy,
			"context":   useContext,
			"used_at":   useLog.UsedAt.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: cardNo,
			Topic:      s.cfg.Kafka.Topic.LedgerEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		// CAS 失败时重读状态，给调用方确定性的错误
		if errors.Is(err, repository.ErrCardStatusInvalid) {
			current, readErr := s.cardRepo.GetByCardNo(ctx, cardNo)
			if readErr != nil {
				return nil, readErr
			}
			if statusErr := cardStatusError(current.Status); statusErr != nil {
				return nil, statusErr
			}
			return nil, fmt.Errorf("%w: cardNo=%s", ErrInvalidStateTransition, cardNo)
		}
		return nil, err
	}

	log.Printf("核销成功: cardNo=%s, useNo=%s, usedBy=%s", cardNo, useNo, usedBy)

	return useLog, nil
}

// cardStatusError 把券的终态映射为对应的业务错误
func cardStatusError(status string) error {
	switch status {
	case model.CardStatusUsed:
		return ErrAlreadyRedeemed
	case model.CardStatusVoid:
		return ErrVoidedCard
	default:
		return nil
	}
}

// GetUseLog 查询某张券的核销记录
func (s *RedemptionService) GetUseLog(ctx context.Context, cardID int64) (*model.UseLog, error) {
	return s.useLogRepo.GetByCardID(ctx, cardID)
}

// ListUseLogs 核销记录列表
func (s *RedemptionService) ListUseLogs(ctx context.Context, page, pageSize int) ([]*model.UseLog, int64, error) {
	return s.useLogRepo.List(ctx, page, pageSize)
}
