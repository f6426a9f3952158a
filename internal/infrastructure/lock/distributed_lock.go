package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 资金路径（支付、退款、核销）在数据库行锁之外再按业务键加一层
// Redis 锁，把同一用户/订单的并发请求挡在事务外面。
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本先比对 value 再删除，保证原子性。
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 锁持有者标识
	expiration time.Duration
}

// NewDistributedLock 创建分布式锁，value 用随机 UUID 标识持有者
func NewDistributedLock(client *redis.Client, key string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      uuid.NewString(),
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

// Lock 阻塞式获取锁（带重试）
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
// Lua 脚本保证"检查+删除"原子执行：锁过期后被他人持有时，
// 过期持有者的 Unlock 不会删掉别人的锁
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

// NewPayLock 支付锁（按用户维度）
// 同一用户的支付串行化，不同用户互不影响
func NewPayLock(client *redis.Client, userID int64) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("pay:lock:user:%d", userID), 30*time.Second)
}

// NewRefundLock 退款锁（按订单维度）
func NewRefundLock(client *redis.Client, orderSn string) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("refund:lock:order:%s", orderSn), 30*time.Second)
}

// NewRedeemLock 核销锁（按订单项维度）
func NewRedeemLock(client *redis.Client, orderItemID string) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("redeem:lock:item:%s", orderItemID), 10*time.Second)
}

// NewNotifyLock 支付回调锁（按商户单号维度）
// 网关可能并发重投同一通知
func NewNotifyLock(client *redis.Client, outTradeNo string) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("notify:lock:trade:%s", outTradeNo), 10*time.Second)
}
