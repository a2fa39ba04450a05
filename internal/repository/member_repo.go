package repository

import (
	"context"
	"errors"

	"vouchersystem/internal/model"

	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("成员不存在")

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, member *model.Member) error {
	return storageErr(r.db.WithContext(ctx).Create(member).Error)
}

func (r *MemberRepository) GetByID(ctx context.Context, memberID int64) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Where("id = ?", memberID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageErr(err)
	}
	return &member, nil
}

func (r *MemberRepository) Update(ctx context.Context, member *model.Member) error {
	return storageErr(r.db.WithContext(ctx).Save(member).Error)
}

// ListActive 活跃成员列表：当前学期入会，或终身/荣誉会员
func (r *MemberRepository) ListActive(ctx context.Context, currentSemester string, page, pageSize int) ([]*model.Member, int64, error) {
	var members []*model.Member
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("semester = ? OR lifetime = ? OR honorary = ?", currentSemester, true, true)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, storageErr(err)
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error

	return members, total, storageErr(err)
}
