package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"wxmall/internal/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	RedisClient = client
	log.Println("Redis 连接成功")
	return client
}

// ============================================================================
// 顾问性缓存：签名文件URL、外部 access_token、短信验证码、
// 按 (用户, 动作, 天) 的限流计数。丢失不破坏任何业务不变量。
// ============================================================================

// Get 读取缓存，key 不存在返回 ("", false)
func Get(ctx context.Context, client *redis.Client, key string) (string, bool, error) {
	v, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetEX 写入缓存并设置过期时间
func SetEX(ctx context.Context, client *redis.Client, key, value string, ttl time.Duration) error {
	return client.Set(ctx, key, value, ttl).Err()
}

// DayCounterKey 按天限流计数的 key
func DayCounterKey(userID int64, action string) string {
	return fmt.Sprintf("rate:%s:%d:%s", action, userID, time.Now().Format("20060102"))
}

// IncrDayCounter 当日计数自增并返回当前值，首次写入到当天结束过期
func IncrDayCounter(ctx context.Context, client *redis.Client, userID int64, action string) (int64, error) {
	key := DayCounterKey(userID, action)
	n, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		client.Expire(ctx, key, 24*time.Hour)
	}
	return n, nil
}
