package model

import (
	"time"
)

// ============================================================================
// 交易流水
// ============================================================================

// TranType 流水业务类型
type TranType int

const (
	TranTypeUnknown       TranType = 0
	TranTypePurchase      TranType = 1 // 消费
	TranTypeWithdraw      TranType = 2 // 提现
	TranTypeRecharge      TranType = 3 // 充值
	TranTypeRefund        TranType = 4 // 退款
	TranTypeMainSaleSplit TranType = 5 // 总销售分成
	TranTypeSaleSplit     TranType = 6 // 销售分成
)

// PayType 支付方式
type PayType int

const (
	PayTypeUnknown PayType = 0
	PayTypePocket  PayType = 1 // 零钱支付
	PayTypeWx      PayType = 2 // 微信支付
)

// TransactionRecord 钱包流水表
// 只追加，不修改，不删除；每次钱包变动写一条，金额带符号
// （入账为正、出账为负），Info 存相关订单/订单项快照便于对账回溯
type TransactionRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	TranType  TranType  `gorm:"not null" json:"tran_type"`
	PayType   PayType   `gorm:"not null" json:"pay_type"`
	Info      string    `gorm:"type:text" json:"info"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TransactionRecord) TableName() string {
	return "transaction_record"
}
