package model

import (
	"time"
)

// WriteOffStatus 核销单状态
type WriteOffStatus int

const (
	WriteOffStatusCancel      WriteOffStatus = 0 // 已取消（订单退款）
	WriteOffStatusPending     WriteOffStatus = 1 // 待核销
	WriteOffStatusSuccess     WriteOffStatus = 2 // 已核销
	WriteOffStatusInvalidated WriteOffStatus = 3 // 已失效（过期）
)

// WriteOffItem 到店核销单
// 订单支付成功时为每个到店核销类订单项生成一条；核销成功记录
// 操作员与时间，父订单项同步置为已完成
type WriteOffItem struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderItemID  string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_item_id"`
	OrderSn      string         `gorm:"type:varchar(64);index;not null" json:"order_sn"`
	UserID       int64          `gorm:"index;not null" json:"user_id"`
	StoreCode    string         `gorm:"type:varchar(64);index;not null" json:"store_code"`
	ExpireTime   time.Time      `gorm:"not null" json:"expire_time"`
	Status       WriteOffStatus `gorm:"index;not null;default:1" json:"status"`
	WriteOffUID  int64          `gorm:"not null;default:0" json:"write_off_uid"`
	WriteOffTime *time.Time     `json:"write_off_time"`
	IsDel        int            `gorm:"not null;default:0" json:"is_del"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WriteOffItem) TableName() string {
	return "write_off_item"
}
