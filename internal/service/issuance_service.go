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

type IssuanceService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	walletRepo  *repository.WalletRepository
	cardRepo    *repository.CardRepository
	outboxRepo  *repository.OutboxRepository
}

func NewIssuanceService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *IssuanceService {
	return &IssuanceService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		walletRepo:  repository.NewWalletRepository(db),
		cardRepo:    repository.NewCardRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type IssueCardRequest struct {
	RequestID string // 幂等ID，调用方生成
	WalletID  int64
	Amount    int64
	IssuedBy  string
}

// IssueCard 发券
//
// 【关键点】发券是扣减余额的唯一出口，必须保证：
// 1. 幂等性：相同的 request_id 只发一张券
// 2. 不超发：扣款条件更新带余额和版本号，两笔并发发券合计超过余额时
//    只有一笔能成功，另一笔在重读后拿到余额不足
// 3. 有界重试：乐观锁冲突重试有限次后返回竞争过高，绝不挂起
func (s *IssuanceService) IssueCard(ctx context.Context, req *IssueCardRequest) (*model.Card, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// 幂等校验
	existingCard, err := s.cardRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询券失败: %w", err)
	}
	if existingCard != nil {
		return existingCard, nil
	}

	// 钱包必须已存在，发券不做惰性创建
	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	// 获取钱包锁
	walletLock := lock.NewWalletLock(s.redisClient, wallet.ID, req.RequestID)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentionExceeded, err)
	}
	defer walletLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	existingCard, err = s.cardRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询券失败: %w", err)
	}
	if existingCard != nil {
		return existingCard, nil
	}

	// 乐观锁有界重试：读余额 -> 条件扣减 -> 冲突则退避重读
	for attempt := 0; attempt < s.cfg.Business.MaxCASRetries; attempt++ {
		wallet, err = s.walletRepo.GetByID(ctx, req.WalletID)
		if err != nil {
			return nil, err
		}

		if wallet.Balance < req.Amount {
			return nil, repository.ErrBalanceNotEnough
		}

		card := &model.Card{
			CardNo:    idgen.GenerateCardNo(),
			RequestID: req.RequestID,
			WalletID:  wallet.ID,
			Amount:    req.Amount,
			Status:    model.CardStatusIssued,
			IssuedBy:  req.IssuedBy,
			IssuedAt:  time.Now(),
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.walletRepo.Debit(ctx, tx, wallet.ID, req.Amount, wallet.Version); err != nil {
				return err
			}

			if err := s.cardRepo.Create(ctx, tx, card); err != nil {
				return fmt.Errorf("创建券失败: %w", err)
			}

			msgPayload := map[string]interface{}{
				"event":     model.EventCardIssued,
				"card_no":   card.CardNo,
				"wallet_id": wallet.ID,
				"amount":    req.Amount,
				"issued_by": req.IssuedBy,
				"issued_at": card.IssuedAt.Format(time.RFC3339),
			}
			payloadBytes, _ := json.Marshal(msgPayload)

			outboxMsg := &model.OutboxMessage{
				MessageKey: card.CardNo,
				Topic:      s.cfg.Kafka.Topic.LedgerEvents,
				Payload:    string(payloadBytes),
				Status:     model.OutboxStatusPending,
			}
			if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
				return fmt.Errorf("写入消息失败: %w", err)
			}

			return nil
		})

		if err == nil {
			log.Printf("发券成功: cardNo=%s, walletID=%d, amount=%d", card.CardNo, wallet.ID, req.Amount)
			return card, nil
		}

		if errors.Is(err, repository.ErrOptimisticLock) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.Business.CASRetryInterval()):
			}
			continue
		}

		return nil, err
	}

	return nil, ErrContentionExceeded
}

// VoidCard 作废券
// 只有 ISSUED 状态的券可以作废，面额原数退回钱包
// 已核销、已作废的券拒绝操作
func (s *IssuanceService) VoidCard(ctx context.Context, cardNo string, voidedBy string) (*model.Card, error) {
	card, err := s.cardRepo.GetByCardNo(ctx, cardNo)
	if err != nil {
		return nil, err
	}

	if card.Status != model.CardStatusIssued {
		return nil, fmt.Errorf("%w: cardNo=%s, status=%s", ErrInvalidStateTransition, cardNo, card.Status)
	}

	// 获取券锁，与核销互斥
	cardLock := lock.NewCardLock(s.redisClient, cardNo, voidedBy)
	if err := cardLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentionExceeded, err)
	}
	defer cardLock.Unlock(ctx)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 状态 CAS：并发方已迁移时 0 行受影响
		if err := s.cardRepo.UpdateStatus(ctx, tx, cardNo, model.CardStatusIssued, model.CardStatusVoid, voidedBy); err != nil {
			if errors.Is(err, repository.ErrCardStatusInvalid) {
				return fmt.Errorf("%w: cardNo=%s", ErrInvalidStateTransition, cardNo)
			}
			return err
		}

		if err := s.walletRepo.Credit(ctx, tx, card.WalletID, card.Amount); err != nil {
			return fmt.Errorf("退回工分失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"event":     model.EventCardVoided,
			"card_no":   cardNo,
			"wallet_id": card.WalletID,
			"amount":    card.Amount,
			"voided_by": voidedBy,
			"voided_at": time.Now().Format(time.RFC3339),
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
		return nil, err
	}

	log.Printf("作废成功: cardNo=%s, walletID=%d, amount=%d", cardNo, card.WalletID, card.Amount)

	return s.cardRepo.GetByCardNo(ctx, cardNo)
}

// GetCard 查询券
func (s *IssuanceService) GetCard(ctx context.Context, cardNo string) (*model.Card, error) {
	return s.cardRepo.GetByCardNo(ctx, cardNo)
}

// ListCards 钱包名下的券
func (s *IssuanceService) ListCards(ctx context.Context, walletID int64, page, pageSize int) ([]*model.Card, int64, error) {
	return s.cardRepo.ListByWalletID(ctx, walletID, page, pageSize)
}
