package model

import (
	"time"
)

// ShopCartStatus 购物车行状态
type ShopCartStatus int

const (
	CartStatusPending    ShopCartStatus = 0 // 购物车待结算
	CartStatusPaid       ShopCartStatus = 1 // 购物车行已成单
	CartStatusBuyNow     ShopCartStatus = 2 // 立即购买
	CartStatusBuyNowPaid ShopCartStatus = 3 // 立即购买已成单
	CartStatusWrong      ShopCartStatus = 4 // 异常（商品下架等）
)

// ShopCart 购物车行
// Pending 与 BuyNow 两类行是预结算的输入
type ShopCart struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"index;not null" json:"user_id"`
	UnitSn      string         `gorm:"type:varchar(64);index;not null" json:"unit_sn"`
	BuyQuantity int            `gorm:"not null" json:"buy_quantity"`
	Status      ShopCartStatus `gorm:"index;not null;default:0" json:"status"`
	IsDel       int            `gorm:"not null;default:0" json:"is_del"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ShopCart) TableName() string {
	return "shop_cart"
}
