package service

import (
	"context"
	"fmt"
	"time"

	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"
	"vouchersystem/internal/semester"

	"gorm.io/gorm"
)

type MemberService struct {
	db         *gorm.DB
	memberRepo *repository.MemberRepository
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{
		db:         db,
		memberRepo: repository.NewMemberRepository(db),
	}
}

type RegisterMemberRequest struct {
	Name      string
	Email     string
	Lifetime  bool
	CreatedBy string
}

// Register 注册成员
// 入会学期取当前学期；终身会员记录成为终身会员的时间
func (s *MemberService) Register(ctx context.Context, req *RegisterMemberRequest) (*model.Member, error) {
	member := &model.Member{
		Name:         req.Name,
		Email:        req.Email,
		Semester:     semester.Current(),
		Lifetime:     req.Lifetime,
		Honorary:     false,
		CreatedBy:    req.CreatedBy,
		LastEditedBy: req.CreatedBy,
	}

	if req.Lifetime {
		now := time.Now()
		member.DateLifetime = &now
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("创建成员失败: %w", err)
	}

	return member, nil
}

// UpdateMemberRequest 更新请求
// lifetime/honorary 用指针布尔区分"未提交"和"显式置为 false"
// 布尔值在绑定层已按类型解析，不做字符串比较
type UpdateMemberRequest struct {
	MemberID int64
	Name     *string
	Email    *string
	Lifetime *bool
	Honorary *bool
	Comments *string
	EditedBy string
}

// Update 更新成员信息
// 终身标志翻转时维护 date_lifetime：置真记录时间，置假清空
func (s *MemberService) Update(ctx context.Context, req *UpdateMemberRequest) (*model.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		member.Name = *req.Name
	}
	if req.Email != nil {
		member.Email = *req.Email
	}
	if req.Lifetime != nil {
		if *req.Lifetime && !member.Lifetime {
			now := time.Now()
			member.DateLifetime = &now
			member.Lifetime = true
		} else if !*req.Lifetime && member.Lifetime {
			member.DateLifetime = nil
			member.Lifetime = false
		}
	}
	if req.Honorary != nil {
		member.Honorary = *req.Honorary
	}
	if req.Comments != nil {
		member.Comments = *req.Comments
	}
	member.LastEditedBy = req.EditedBy

	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("更新成员失败: %w", err)
	}

	return member, nil
}

func (s *MemberService) GetMember(ctx context.Context, memberID int64) (*model.Member, error) {
	return s.memberRepo.GetByID(ctx, memberID)
}

// IsActive 成员在指定时间点是否具有活跃资格
// 纯判定，无副作用
func (s *MemberService) IsActive(member *model.Member, at time.Time) bool {
	return member.IsActive(semester.OfTime(at))
}

// ListActive 当前活跃成员列表
func (s *MemberService) ListActive(ctx context.Context, page, pageSize int) ([]*model.Member, int64, error) {
	return s.memberRepo.ListActive(ctx, semester.Current(), page, pageSize)
}
