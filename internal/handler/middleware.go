package handler

import (
	"log"
	"strconv"
	"time"

	"wxmall/internal/infrastructure/cache"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// DayRateLimitMiddleware 按 (用户, 动作, 天) 限流
// limit <= 0 表示不限；计数器不可用或缺 user_id 时放行，
// 参数校验与兜底交给业务处理器
func DayRateLimitMiddleware(rdb *redis.Client, action string, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			c.Next()
			return
		}
		n, err := cache.IncrDayCounter(c.Request.Context(), rdb, userID, action)
		if err != nil {
			log.Printf("[RateLimit] 限流计数失败: %v", err)
			c.Next()
			return
		}
		if n > limit {
			c.AbortWithStatusJSON(429, gin.H{
				"code":    429,
				"message": "今日操作次数已达上限",
			})
			return
		}
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
