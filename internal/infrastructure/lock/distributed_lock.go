package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景：两个管理员同时给同一个钱包发券（或同时核销同一张券）
//
// 如果没有锁：
//   goroutine1: 查询余额=100 -> 发券60 -> 余额=40   OK
//   goroutine2: 查询余额=100 -> 发券60 -> 余额=-20  超发了！
//
// 加锁之后：
//   goroutine1: 获取锁 -> 查询余额=100 -> 发券60 -> 余额=40 -> 释放锁
//   goroutine2: 获取锁失败，等待... -> 获取锁 -> 查询余额=40 -> 余额不足，拒绝
//
// 锁之下还有数据库条件更新兜底（余额、版本号、券状态都带在 WHERE 里），
// 锁丢失或过期也不会破坏账本不变量，只会多一次乐观锁重试。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 有界重试获取锁
// 重试耗尽返回 ErrLockFailed，调用方决定是否整体重试，绝不无限阻塞
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本保证"验证持有者 + 删除"的原子性，不会误删别人的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：按钱包、按券维度的锁
// ============================================================================

// NewWalletLock 钱包锁
// 记账、发券、作废退回这些触碰余额的操作按钱包维度互斥，
// 不同钱包之间完全并发
func NewWalletLock(client *redis.Client, walletID int64, requestID string) *DistributedLock {
	key := fmt.Sprintf("voucher:lock:wallet:%d", walletID)
	// value 使用 requestID，便于追踪是哪个请求持有锁
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}

// NewCardLock 券锁
// 核销与作废按券维度互斥
func NewCardLock(client *redis.Client, cardNo string, requestID string) *DistributedLock {
	key := fmt.Sprintf("voucher:lock:card:%s", cardNo)
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}
