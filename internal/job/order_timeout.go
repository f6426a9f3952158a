package job

import (
	"context"
	"log"
	"time"

	"wxmall/internal/model"
	"wxmall/internal/service"

	"gorm.io/gorm"
)

// OrderTimeoutJob 定时取消超时未支付订单
// 取消走服务层的统一回补路径：库存、优惠券一并恢复
type OrderTimeoutJob struct {
	orderService *service.OrderService
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewOrderTimeoutJob(orderService *service.OrderService) *OrderTimeoutJob {
	return &OrderTimeoutJob{
		orderService: orderService,
		stopCh:       make(chan struct{}),
		interval:     10 * time.Second,
		batchSize:    100,
	}
}

func (j *OrderTimeoutJob) Start(ctx context.Context) {
	log.Println("[OrderTimeoutJob] 订单超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OrderTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[OrderTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			closed, err := j.orderService.CloseExpiredOrders(ctx, j.batchSize)
			if err != nil {
				log.Printf("[OrderTimeoutJob] 扫描超时订单失败: %v", err)
				continue
			}
			if closed > 0 {
				log.Printf("[OrderTimeoutJob] 本次取消 %d 个超时订单", closed)
			}
		}
	}
}

func (j *OrderTimeoutJob) Stop() {
	close(j.stopCh)
}

// WriteOffExpireJob 定时将过期未核销的核销单置为已失效
type WriteOffExpireJob struct {
	db       *gorm.DB
	stopCh   chan struct{}
	interval time.Duration
}

func NewWriteOffExpireJob(db *gorm.DB) *WriteOffExpireJob {
	return &WriteOffExpireJob{
		db:       db,
		stopCh:   make(chan struct{}),
		interval: time.Minute,
	}
}

func (j *WriteOffExpireJob) Start(ctx context.Context) {
	log.Println("[WriteOffExpireJob] 核销单过期任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[WriteOffExpireJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[WriteOffExpireJob] 任务停止")
			return
		case <-ticker.C:
			j.invalidateExpired(ctx)
		}
	}
}

func (j *WriteOffExpireJob) Stop() {
	close(j.stopCh)
}

func (j *WriteOffExpireJob) invalidateExpired(ctx context.Context) {
	result := j.db.WithContext(ctx).
		Model(&model.WriteOffItem{}).
		Where("status = ? AND expire_time < ? AND is_del = 0", model.WriteOffStatusPending, time.Now()).
		Update("status", model.WriteOffStatusInvalidated)
	if result.Error != nil {
		log.Printf("[WriteOffExpireJob] 置失效失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[WriteOffExpireJob] %d 个核销单已过期失效", result.RowsAffected)
	}
}
