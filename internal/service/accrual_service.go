package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vouchersystem/internal/config"
	"vouchersystem/internal/infrastructure/lock"
	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"
	"vouchersystem/internal/semester"
	"vouchersystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type AccrualService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	memberRepo  *repository.MemberRepository
	walletRepo  *repository.WalletRepository
	workLogRepo *repository.WorkLogRepository
	outboxRepo  *repository.OutboxRepository
}

func NewAccrualService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AccrualService {
	return &AccrualService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		memberRepo:  repository.NewMemberRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		workLogRepo: repository.NewWorkLogRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type RecordWorkRequest struct {
	RequestID  string    // 幂等ID，调用方生成
	MemberID   int64     // 工分归属成员
	Amount     int64     // 工分数，必须为正
	RecordedBy string    // 经手人，权限已由上层校验
	Remark     string    // 备注
	At         time.Time // 资格判断的时间点，零值取当前时间
}

// RecordWork 工分记账
//
// 【关键点】
// 1. 资格门禁：非终身/荣誉成员只有在入会学期内才能获得工分，不符合直接拒绝
// 2. 惰性钱包：成员首笔工分到账时才创建钱包
// 3. 原子性：记账行和余额增加在同一事务内落库，不会出现只有其一的状态
func (s *AccrualService) RecordWork(ctx context.Context, req *RecordWorkRequest) (*model.WorkLog, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	// 幂等校验
	existing, err := s.workLogRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询记账单失败: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	// 资格门禁
	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive(semester.OfTime(at)) {
		return nil, fmt.Errorf("%w: member_id=%d, semester=%s", ErrIneligibleMember, member.ID, member.Semester)
	}

	// 首笔工分时惰性创建钱包
	wallet, err := s.walletRepo.GetOrCreateByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}

	// 获取钱包锁
	walletLock := lock.NewWalletLock(s.redisClient, wallet.ID, req.RequestID)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentionExceeded, err)
	}
	defer walletLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	existing, err = s.workLogRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询记账单失败: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	// 锁内重读余额作为记账前快照
	wallet, err = s.walletRepo.GetByID(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}

	workLog := &model.WorkLog{
		WorkNo:        idgen.GenerateWorkNo(),
		RequestID:     req.RequestID,
		WalletID:      wallet.ID,
		Amount:        req.Amount,
		Semester:      semester.OfTime(at),
		RecordedBy:    req.RecordedBy,
		Remark:        req.Remark,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance + req.Amount,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.workLogRepo.Create(ctx, tx, workLog); err != nil {
			return fmt.Errorf("写入记账单失败: %w", err)
		}

		if err := s.walletRepo.Credit(ctx, tx, wallet.ID, req.Amount); err != nil {
			return fmt.Errorf("工分入账失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"event":       model.EventWorkRecorded,
			"work_no":     workLog.WorkNo,
			"wallet_id":   wallet.ID,
			"member_id":   req.MemberID,
			"amount":      req.Amount,
			"semester":    workLog.Semester,
			"recorded_by": req.RecordedBy,
			"recorded_at": time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: workLog.WorkNo,
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

	log.Printf("工分记账成功: workNo=%s, walletID=%d, amount=%d", workLog.WorkNo, wallet.ID, req.Amount)

	return workLog, nil
}

// ListWorkLogs 钱包的记账流水
func (s *AccrualService) ListWorkLogs(ctx context.Context, walletID int64, page, pageSize int) ([]*model.WorkLog, int64, error) {
	return s.workLogRepo.ListByWalletID(ctx, walletID, page, pageSize)
}
