package model

import (
	"time"
)

const (
	CardStatusIssued = "ISSUED" // 已发放，可使用
	CardStatusUsed   = "USED"   // 已核销，终态
	CardStatusVoid   = "VOID"   // 已作废，工分退回钱包，终态
)

// ValidCardTransitions 券状态机
// ISSUED 只能走向 USED 或 VOID，两个终态不可再变更
var ValidCardTransitions = map[string][]string{
	CardStatusIssued: {CardStatusUsed, CardStatusVoid},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidCardTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Card 代金券表
// 发券时从钱包扣减对应工分，核销不再触碰余额
type Card struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CardNo    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"card_no"`
	RequestID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID
	WalletID  int64      `gorm:"index;not null" json:"wallet_id"`
	Amount    int64      `gorm:"not null" json:"amount"` // 面额（工分）
	Status    string     `gorm:"type:varchar(20);index;not null" json:"status"`
	IssuedBy  string     `gorm:"type:varchar(64);not null" json:"issued_by"`
	IssuedAt  time.Time  `gorm:"not null" json:"issued_at"`
	VoidedBy  string     `gorm:"type:varchar(64)" json:"voided_by,omitempty"`
	VoidedAt  *time.Time `json:"voided_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Card) TableName() string {
	return "card"
}
