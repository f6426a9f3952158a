package model

import (
	"time"
)

const (
	CouponStatusOffline = 0
	CouponStatusOnline  = 1
)

// Coupon 优惠券
// ReduceAmount 与 Discount 互斥：满减券只设前者，折扣券只设后者
// （Discount 取值 (0,1)，0.9 表示九折）
type Coupon struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(64);not null" json:"name"`
	ReduceAmount float64   `gorm:"type:decimal(10,2);not null;default:0" json:"reduce_amount"`
	Discount     float64   `gorm:"type:decimal(3,2);not null;default:0" json:"discount"`
	Remaining    int       `gorm:"not null;default:0" json:"remaining"` // 剩余发放量
	ExpireTime   time.Time `gorm:"not null" json:"expire_time"`
	Status       int       `gorm:"not null;default:1" json:"status"`
	ConditionID  int64     `gorm:"not null" json:"condition_id"`
	IsDel        int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupon"
}

// CouponCondition 优惠券适用条件
// 各字段均可选，匹配优先级：UnitSn > ProductSn > 分类路径 >
// (StoreCode 且 BrandCode)；FullAmount 是满减门槛（对"贡献行"合计）
type CouponCondition struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	FullAmount float64 `gorm:"type:decimal(10,2);not null;default:0" json:"full_amount"`
	StoreCode  string  `gorm:"type:varchar(64)" json:"store_code"`
	BrandCode  string  `gorm:"type:varchar(64)" json:"brand_code"`
	CatOne     int64   `json:"cat_one"` // 分类路径，设到第几级就匹配到第几级
	CatTwo     int64   `json:"cat_two"`
	CatThree   int64   `json:"cat_three"`
	ProductSn  string  `gorm:"type:varchar(64)" json:"product_sn"`
	UnitSn     string  `gorm:"type:varchar(64)" json:"unit_sn"`
}

func (CouponCondition) TableName() string {
	return "coupon_condition"
}

// UserCoupon 用户持券
type UserCouponStatus int

const (
	UserCouponExpired UserCouponStatus = 0
	UserCouponUnused  UserCouponStatus = 1
	UserCouponUsed    UserCouponStatus = 2
)

// UserCoupon 用户持券记录
// 约束：同一 (用户, 券) 至多一张 Unused
type UserCoupon struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64            `gorm:"index:idx_user_coupon;not null" json:"user_id"`
	CouponID  int64            `gorm:"index:idx_user_coupon;not null" json:"coupon_id"`
	Status    UserCouponStatus `gorm:"not null;default:1" json:"status"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserCoupon) TableName() string {
	return "user_coupon"
}
