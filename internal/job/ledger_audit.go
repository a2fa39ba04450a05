package job

import (
	"context"
	"log"
	"time"

	"vouchersystem/internal/config"
	"vouchersystem/internal/repository"
	"vouchersystem/internal/service"

	"gorm.io/gorm"
)

// LedgerAuditJob 周期对账任务
// 对最近有变动的钱包做流水重放，余额对不上立即告警日志
// 账本不变量靠条件更新保证，这里是独立的事后校验
type LedgerAuditJob struct {
	db           *gorm.DB
	walletRepo   *repository.WalletRepository
	auditService *service.AuditService
	cfg          *config.Config
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config) *LedgerAuditJob {
	return &LedgerAuditJob{
		db:           db,
		walletRepo:   repository.NewWalletRepository(db),
		auditService: service.NewAuditService(db),
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		interval:     30 * time.Second,
		batchSize:    100,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	log.Println("[LedgerAuditJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerAuditJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LedgerAuditJob] 任务停止")
			return
		case <-ticker.C:
			j.auditRecentWallets(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

func (j *LedgerAuditJob) auditRecentWallets(ctx context.Context) {
	since := time.Now().Add(-j.interval * 2)
	wallets, err := j.walletRepo.ListUpdatedSince(ctx, since, j.batchSize)
	if err != nil {
		log.Printf("[LedgerAuditJob] 查询钱包失败: %v", err)
		return
	}

	for _, wallet := range wallets {
		report, err := j.auditService.VerifyWallet(ctx, wallet.ID)
		if err != nil {
			log.Printf("[LedgerAuditJob] 对账失败: walletID=%d, err=%v", wallet.ID, err)
			continue
		}
		if !report.Matched {
			log.Printf("[LedgerAuditJob] 余额不一致: walletID=%d, stored=%d, replayed=%d",
				report.WalletID, report.Stored, report.Replayed)
		}
	}
}
