package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器（按业务类别独立流）
// ============================================================================
//
// 订单号、商户单号、订单项ID、配送码、文件名各自独立一条流：
// 同一进程内每条流严格递增；跨进程靠时间戳 + 机器ID 区分，
// 碰撞概率可忽略。
//
// 【雪花算法结构】64位
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//   |   |            |            |
//   |   |            |            +-- 同一毫秒内的序列号（0-4095）
//   |   |            +-- 机器ID（0-1023）
//   |   +-- 毫秒级时间戳（可用约69年）
//   +-- 符号位，始终为0
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 起始时间戳（2024-01-01 00:00:00 UTC）
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Category 业务类别，每个类别一条独立ID流
type Category int

const (
	CategoryOrderSn Category = iota
	CategoryOutTradeNo
	CategoryOrderItem
	CategoryDeliveryCode
	CategoryFileName
	categoryCount
)

// Snowflake 单条ID流
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	streams [categoryCount]*Snowflake
	once    sync.Once
)

// Init 初始化全部ID流，进程启动时调用一次
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID 必须在 0-%d 之间", maxWorkerID)
		}
		for i := range streams {
			streams[i] = &Snowflake{workerID: workerID}
		}
	})
}

// Next 生成指定类别的下一个ID
func Next(c Category) int64 {
	if streams[c] == nil {
		Init(1)
	}
	return streams[c].Generate()
}

// Generate 生成ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		// 同一毫秒内，序列号递增
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	id := ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence

	return id
}

// GenerateOrderSn 生成订单号（十进制）
func GenerateOrderSn() string {
	return fmt.Sprintf("%d", Next(CategoryOrderSn))
}

// GenerateOutTradeNo 生成商户单号
// 格式：hex(秒级时间戳) + hex(ID)，传给支付网关
func GenerateOutTradeNo() string {
	return fmt.Sprintf("%x%x", time.Now().Unix(), Next(CategoryOutTradeNo))
}

// GenerateOrderItemID 生成订单项ID（十进制）
func GenerateOrderItemID() string {
	return fmt.Sprintf("%d", Next(CategoryOrderItem))
}

// GenerateDeliveryCode 生成配送码
// 带前缀，便于人工识别来源
func GenerateDeliveryCode() string {
	return fmt.Sprintf("D%d", Next(CategoryDeliveryCode))
}

// GenerateFileName 生成文件名
func GenerateFileName() string {
	return fmt.Sprintf("%x", Next(CategoryFileName))
}
