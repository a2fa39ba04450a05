package model

import (
	"time"
)

// Member 成员表
// 记录社团成员/实习生的身份信息与会员资格标志
//
// 【注意】成员只做软状态管理，永远不物理删除
// lifetime/honorary 为真时跳过学期资格检查
type Member struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"type:varchar(128);not null" json:"name"`
	Email        string     `gorm:"type:varchar(128);index;not null" json:"email"`
	Semester     string     `gorm:"type:varchar(16);index;not null" json:"semester"` // 入会学期，如 2024-AUTUMN
	Lifetime     bool       `gorm:"not null;default:false" json:"lifetime"`          // 终身会员
	Honorary     bool       `gorm:"not null;default:false" json:"honorary"`          // 荣誉会员
	DateLifetime *time.Time `json:"date_lifetime"`                                   // 成为终身会员的时间
	Comments     string     `gorm:"type:varchar(300)" json:"comments"`
	CreatedBy    string     `gorm:"type:varchar(64);not null" json:"created_by"`
	LastEditedBy string     `gorm:"type:varchar(64);not null" json:"last_edited_by"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}

// IsActive 判断成员在指定学期是否具有活跃资格
// 规则：终身会员、荣誉会员始终活跃；普通成员仅在入会学期内活跃
func (m *Member) IsActive(semester string) bool {
	return m.Lifetime || m.Honorary || m.Semester == semester
}
