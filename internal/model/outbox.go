package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 订单事件类型，随 outbox 消息投递给下游（对账、通知等）
const (
	EventOrderPaid      = "ORDER_PAID"
	EventOrderRefunded  = "ORDER_REFUNDED"
	EventOrderCanceled  = "ORDER_CANCELED"
	EventItemWrittenOff = "ITEM_WRITTEN_OFF"
)

// OutboxMessage 事务性发件箱
// 业务事务内只落库，后台任务再推送 Kafka，保证订单状态与事件
// 至少各成功一次
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	EventType  string    `gorm:"type:varchar(32);not null" json:"event_type"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
