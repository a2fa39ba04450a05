package handler

import (
	"errors"
	"strconv"
	"time"

	"vouchersystem/internal/config"
	"vouchersystem/internal/repository"
	"vouchersystem/internal/service"
	"vouchersystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
// 本层只做参数绑定和错误码映射，身份与权限由上游网关校验后
// 以 recorded_by/issued_by 等字段传入，这里直接信任
type Handler struct {
	memberService     *service.MemberService
	walletService     *service.WalletService
	accrualService    *service.AccrualService
	issuanceService   *service.IssuanceService
	redemptionService *service.RedemptionService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		memberService:     service.NewMemberService(db),
		walletService:     service.NewWalletService(db),
		accrualService:    service.NewAccrualService(db, rdb, cfg),
		issuanceService:   service.NewIssuanceService(db, rdb, cfg),
		redemptionService: service.NewRedemptionService(db, rdb, cfg),
	}
}

// businessError 把账本错误映射为稳定的业务错误码
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, service.ErrIneligibleMember):
		response.BusinessError(c, response.CodeIneligibleMember, err.Error())
	case errors.Is(err, repository.ErrMemberNotFound):
		response.BusinessError(c, response.CodeMemberNotFound, err.Error())
	case errors.Is(err, repository.ErrWalletNotFound):
		response.BusinessError(c, response.CodeWalletNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, repository.ErrCardNotFound):
		response.BusinessError(c, response.CodeCardNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyRedeemed):
		response.BusinessError(c, response.CodeAlreadyRedeemed, err.Error())
	case errors.Is(err, service.ErrVoidedCard):
		response.BusinessError(c, response.CodeVoidedCard, err.Error())
	case errors.Is(err, service.ErrInvalidStateTransition):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrContentionExceeded):
		response.BusinessError(c, response.CodeContention, err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable):
		response.BusinessError(c, response.CodeStorageError, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 成员相关接口
// ============================================================

// RegisterMemberRequest 注册成员请求
type RegisterMemberRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Lifetime  bool   `json:"lifetime"`
	CreatedBy string `json:"created_by" binding:"required"`
}

// RegisterMember 注册成员
// POST /api/v1/member/register
func (h *Handler) RegisterMember(c *gin.Context) {
	var req RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.memberService.Register(c.Request.Context(), &service.RegisterMemberRequest{
		Name:      req.Name,
		Email:     req.Email,
		Lifetime:  req.Lifetime,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, member)
}

// UpdateMemberRequest 更新成员请求
// lifetime/honorary 按 JSON 布尔解析，缺省字段不参与更新
type UpdateMemberRequest struct {
	MemberID int64   `json:"member_id" binding:"required"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Lifetime *bool   `json:"lifetime"`
	Honorary *bool   `json:"honorary"`
	Comments *string `json:"comments"`
	EditedBy string  `json:"edited_by" binding:"required"`
}

// UpdateMember 更新成员信息
// POST /api/v1/member/update
func (h *Handler) UpdateMember(c *gin.Context) {
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.memberService.Update(c.Request.Context(), &service.UpdateMemberRequest{
		MemberID: req.MemberID,
		Name:     req.Name,
		Email:    req.Email,
		Lifetime: req.Lifetime,
		Honorary: req.Honorary,
		Comments: req.Comments,
		EditedBy: req.EditedBy,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, member)
}

// GetMember 查询成员
// GET /api/v1/member/detail?member_id=xxx
func (h *Handler) GetMember(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	member, err := h.memberService.GetMember(c.Request.Context(), memberID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"member": member,
		"active": h.memberService.IsActive(member, time.Now()),
	})
}

// ListActiveMembers 当前活跃成员列表
// GET /api/v1/member/list?page=1&page_size=10
func (h *Handler) ListActiveMembers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	members, total, err := h.memberService.ListActive(c.Request.Context(), page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      members,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetBalance 查询成员余额
// GET /api/v1/wallet/balance?member_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	memberID, err := strconv.ParseInt(c.Query("member_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "member_id 参数错误")
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), memberID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"member_id": memberID,
		"balance":   balance,
	})
}

// GetWallet 查询钱包详情
// GET /api/v1/wallet/detail?wallet_id=xxx
func (h *Handler) GetWallet(c *gin.Context) {
	walletID, err := strconv.ParseInt(c.Query("wallet_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "wallet_id 参数错误")
		return
	}

	wallet, err := h.walletService.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, wallet)
}

// ============================================================
// 工分记账接口
// ============================================================

// RecordWorkRequest 记账请求
type RecordWorkRequest struct {
	RequestID  string `json:"request_id" binding:"required"` // 幂等ID
	MemberID   int64  `json:"member_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	RecordedBy string `json:"recorded_by" binding:"required"`
	Remark     string `json:"remark"`
}

// RecordWork 工分记账
// POST /api/v1/work/record
func (h *Handler) RecordWork(c *gin.Context) {
	var req RecordWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	workLog, err := h.accrualService.RecordWork(c.Request.Context(), &service.RecordWorkRequest{
		RequestID:  req.RequestID,
		MemberID:   req.MemberID,
		Amount:     req.Amount,
		RecordedBy: req.RecordedBy,
		Remark:     req.Remark,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, workLog)
}

// ListWorkLogs 记账流水
// GET /api/v1/work/list?wallet_id=xxx&page=1&page_size=10
func (h *Handler) ListWorkLogs(c *gin.Context) {
	walletID, err := strconv.ParseInt(c.Query("wallet_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "wallet_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	workLogs, total, err := h.accrualService.ListWorkLogs(c.Request.Context(), walletID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      workLogs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 券相关接口
// ============================================================

// IssueCardRequest 发券请求
type IssueCardRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID
	WalletID  int64  `json:"wallet_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	IssuedBy  string `json:"issued_by" binding:"required"`
}

// IssueCard 发券
// POST /api/v1/card/issue
func (h *Handler) IssueCard(c *gin.Context) {
	var req IssueCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	card, err := h.issuanceService.IssueCard(c.Request.Context(), &service.IssueCardRequest{
		RequestID: req.RequestID,
		WalletID:  req.WalletID,
		Amount:    req.Amount,
		IssuedBy:  req.IssuedBy,
	})
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, card)
}

// VoidCardRequest 作废请求
type VoidCardRequest struct {
	CardNo   string `json:"card_no" binding:"required"`
	VoidedBy string `json:"voided_by" binding:"required"`
}

// VoidCard 作废券，面额退回钱包
// POST /api/v1/card/void
func (h *Handler) VoidCard(c *gin.Context) {
	var req VoidCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	card, err := h.issuanceService.VoidCard(c.Request.Context(), req.CardNo, req.VoidedBy)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, card)
}

// RedeemCardRequest 核销请求
type RedeemCardRequest struct {
	CardNo  string `json:"card_no" binding:"required"`
	UsedBy  string `json:"used_by" binding:"required"`
	Context string `json:"context"`
}

// RedeemCard 核销券
// POST /api/v1/card/redeem
func (h *Handler) RedeemCard(c *gin.Context) {
	var req RedeemCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	useLog, err := h.redemptionService.RedeemCard(c.Request.Context(), req.CardNo, req.UsedBy, req.Context)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, useLog)
}

// GetCard 查询券
// GET /api/v1/card/detail?card_no=xxx
func (h *Handler) GetCard(c *gin.Context) {
	cardNo := c.Query("card_no")
	if cardNo == "" {
		response.ParamError(c, "card_no 参数不能为空")
		return
	}

	card, err := h.issuanceService.GetCard(c.Request.Context(), cardNo)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, card)
}

// ListCards 钱包名下的券
// GET /api/v1/card/list?wallet_id=xxx&page=1&page_size=10
func (h *Handler) ListCards(c *gin.Context) {
	walletID, err := strconv.ParseInt(c.Query("wallet_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "wallet_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	cards, total, err := h.issuanceService.ListCards(c.Request.Context(), walletID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      cards,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListUseLogs 核销记录列表
// GET /api/v1/uselog/list?page=1&page_size=10
func (h *Handler) ListUseLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	useLogs, total, err := h.redemptionService.ListUseLogs(c.Request.Context(), page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      useLogs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
