package model

import (
	"time"
)

// WorkLog 工分记账表
// 记录每一笔工分的来源，是对账的核心依据
//
// 【重要】记账表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 金额必须为正数 —— 冲正由上层以补偿方式处理，本表不出现负数
// 3. 记录入账时的学期与经手人 —— 便于审计
type WorkLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"work_no"`    // 记账单号（全局唯一）
	RequestID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，调用方生成
	WalletID      int64     `gorm:"index;not null" json:"wallet_id"`
	Amount        int64     `gorm:"not null" json:"amount"`                          // 工分数，恒为正
	Semester      string    `gorm:"type:varchar(16);index;not null" json:"semester"` // 入账时所属学期
	RecordedBy    string    `gorm:"type:varchar(64);not null" json:"recorded_by"`    // 经手人
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"` // 入账前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`  // 入账后余额
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WorkLog) TableName() string {
	return "work_log"
}
