package model

import (
	"time"
)

// ============================================================================
// 订单与订单项状态机
// ============================================================================

// OrderPayStatus 订单状态
type OrderPayStatus int

const (
	OrderStatusCancelPayment  OrderPayStatus = 0 // 已取消
	OrderStatusPendingPayment OrderPayStatus = 1 // 待支付
	OrderStatusPaid           OrderPayStatus = 2 // 已支付
	OrderStatusApply          OrderPayStatus = 4 // 申请退款
	OrderStatusRefund         OrderPayStatus = 5 // 已退款
	OrderStatusRefunding      OrderPayStatus = 6 // 退款中
	OrderStatusRefuse         OrderPayStatus = 7 // 拒绝退款
)

// 订单状态允许的迁移
// Apply -> Paid 是网关退款发起失败时的恢复路径
var validOrderTransitions = map[OrderPayStatus][]OrderPayStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelPayment},
	OrderStatusPaid:           {OrderStatusApply},
	OrderStatusApply:          {OrderStatusRefund, OrderStatusRefunding, OrderStatusRefuse, OrderStatusPaid},
	OrderStatusRefunding:      {OrderStatusRefund},
}

// CanTransitionTo 校验订单状态迁移是否合法
func CanTransitionTo(from, to OrderPayStatus) bool {
	for _, s := range validOrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderItemStatus 订单项状态
type OrderItemStatus int

const (
	ItemStatusWaitDeliverGoods OrderItemStatus = 0 // 待发货
	ItemStatusWaitTakeDelivery OrderItemStatus = 1 // 待收货
	ItemStatusComplete         OrderItemStatus = 2 // 已完成
	ItemStatusEvaluated        OrderItemStatus = 3 // 已评价
	ItemStatusApply            OrderItemStatus = 4 // 申请退款
	ItemStatusRefund           OrderItemStatus = 5 // 已退款
	ItemStatusRefunding        OrderItemStatus = 6 // 退款中
	ItemStatusRefuse           OrderItemStatus = 7 // 拒绝退款
)

// Order 订单表
// 金额字段都保留两位小数；TransactionID 在支付成功时回填；
// Reason 在退款/拒绝时回填
type Order struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderSn       string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_sn"`
	OutTradeNo    string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"out_trade_no"`
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	TotalAmount   float64        `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	TotalQuantity int            `gorm:"not null" json:"total_quantity"`
	ReduceAmount  float64        `gorm:"type:decimal(10,2);not null;default:0" json:"reduce_amount"`
	PayAmount     float64        `gorm:"type:decimal(10,2);not null" json:"pay_amount"`
	Name          string         `gorm:"type:varchar(32)" json:"name"`  // 收件人
	Phone         string         `gorm:"type:varchar(20)" json:"phone"` // 收件人电话
	AddressDetail string         `gorm:"type:varchar(255)" json:"address_detail"`
	DeliveryType  DeliveryType   `gorm:"not null" json:"delivery_type"`
	PayType       PayType        `gorm:"not null" json:"pay_type"`
	Status        OrderPayStatus `gorm:"index;not null;default:1" json:"status"`
	UserCouponID  int64          `gorm:"not null;default:0" json:"user_coupon_id"` // 下单用掉的持券，取消时回退
	TransactionID string         `gorm:"type:varchar(64)" json:"transaction_id"`
	Reason        string         `gorm:"type:varchar(255)" json:"reason"`
	Notes         string         `gorm:"type:varchar(255)" json:"notes"`
	Appointment   *time.Time     `json:"appointment,omitempty"` // 预约（上门/到店）时间
	ExpiredAt     time.Time      `gorm:"not null" json:"expired_at"`
	PaidAt        *time.Time     `json:"paid_at"`
	IsDel         int            `gorm:"not null;default:0" json:"is_del"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "order"
}

// OrderItem 订单项表
// 名称、封面、属性、单价在下单时刻快照，后续商品改动不影响已成订单
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderItemID string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_item_id"`
	OrderSn     string          `gorm:"type:varchar(64);index;not null" json:"order_sn"`
	UnitSn      string          `gorm:"type:varchar(64);index;not null" json:"unit_sn"`
	UnitName    string          `gorm:"type:varchar(128);not null" json:"unit_name"`
	Cover       string          `gorm:"type:varchar(255)" json:"cover"`
	Attr        string          `gorm:"type:varchar(255)" json:"attr"`
	Price       float64         `gorm:"type:decimal(10,2);not null" json:"price"`
	BuyQuantity int             `gorm:"not null" json:"buy_quantity"`
	Amount      float64         `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status      OrderItemStatus `gorm:"index;not null;default:0" json:"status"`
	IsDel       int             `gorm:"not null;default:0" json:"is_del"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "order_item"
}
