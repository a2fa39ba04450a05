package model

import (
	"time"
)

// Wallet 钱包表
// 记录成员的工分余额，是整个代金券系统的核心数据
// 余额只通过工分记账（加）、发券（减）、作废退回（加）三条路径变化
type Wallet struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID  int64     `gorm:"uniqueIndex;not null" json:"member_id"` // 钱包归属的成员，一人一个
	Balance   int64     `gorm:"not null;default:0" json:"balance"`     // 可用余额（工分），不允许为负
	Version   int       `gorm:"not null;default:0" json:"version"`     // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
