package model

import (
	"time"
)

// DeliveryGroup 配送组
// 一组同一运单发出的订单项
type DeliveryGroup struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeliveryCode  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"delivery_code"`
	OrderSn       string    `gorm:"type:varchar(64);index;not null" json:"order_sn"`
	WaybillID     string    `gorm:"type:varchar(64)" json:"waybill_id"`
	SenderName    string    `gorm:"type:varchar(32)" json:"sender_name"`
	SenderPhone   string    `gorm:"type:varchar(20)" json:"sender_phone"`
	ReceiverName  string    `gorm:"type:varchar(32)" json:"receiver_name"`
	ReceiverPhone string    `gorm:"type:varchar(20)" json:"receiver_phone"`
	ReceiverAddr  string    `gorm:"type:varchar(255)" json:"receiver_addr"`
	IsDel         int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeliveryGroup) TableName() string {
	return "delivery_group"
}

// DeliveryItem 配送组内的订单项
type DeliveryItem struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DeliveryCode string `gorm:"type:varchar(64);index;not null" json:"delivery_code"`
	OrderItemID  string `gorm:"type:varchar(64);index;not null" json:"order_item_id"`
}

func (DeliveryItem) TableName() string {
	return "delivery_item"
}
