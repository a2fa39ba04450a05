package service

import (
	"errors"
)

// 业务错误全部同步返回调用方，核心层自身只对乐观锁冲突做有界重试
var (
	ErrInvalidAmount          = errors.New("金额必须大于0")
	ErrIneligibleMember       = errors.New("成员当前学期无活跃资格")
	ErrAlreadyRedeemed        = errors.New("券已核销，请勿重复操作")
	ErrVoidedCard             = errors.New("券已作废")
	ErrInvalidStateTransition = errors.New("券状态不允许该操作")
	ErrContentionExceeded     = errors.New("并发冲突过多，请稍后重试")
)
