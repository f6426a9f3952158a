package model

import (
	"time"
)

const (
	WalletStatusDisabled = 0
	WalletStatusActive   = 1
)

// Wallet 用户零钱包
// 余额是整个资金系统的核心数据；AmountHash 是余额防篡改标签，
// 等于 encrypt("uid_金额", UserPocketMoney 子密钥)。任何读取先校验
// 标签，对不上即判定数据被改动过，拒绝继续
type Wallet struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Amount     float64   `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	AmountHash string    `gorm:"type:varchar(128);not null" json:"-"`
	Status     int       `gorm:"not null;default:1" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
