package model

import (
	"time"
)

// UseLog 核销记录表
// 一张券最多对应一条核销记录（card_id 唯一索引兜底）
// 只追加，不修改，不删除
type UseLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UseNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"use_no"`
	CardID    int64     `gorm:"uniqueIndex;not null" json:"card_id"`
	UsedBy    string    `gorm:"type:varchar(64);not null" json:"used_by"`
	Context   string    `gorm:"type:varchar(256)" json:"context"` // 核销场景说明，如柜台、活动名
	UsedAt    time.Time `gorm:"not null" json:"used_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UseLog) TableName() string {
	return "use_log"
}
