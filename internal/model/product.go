package model

import (
	"time"
)

// DeliveryType 交付方式，位集表示（商品可同时支持多种）
type DeliveryType int

const (
	DeliveryNoDelivery    DeliveryType = 1 << iota // 无需配送（虚拟商品）
	DeliveryDoDelivery                             // 商家发货
	DeliveryWxDelivery                             // 微信物流
	DeliveryWxInstant                              // 微信同城即时
	DeliveryDoorPickup                             // 上门自提
	DeliveryStoreWriteOff                          // 到店核销
)

// NeedsShipping 是否需要收货地址
func (d DeliveryType) NeedsShipping() bool {
	return d&(DeliveryDoDelivery|DeliveryWxDelivery|DeliveryWxInstant) != 0
}

const (
	ProductStatusOffline = 0
	ProductStatusOnline  = 1
)

// Product 商品（SPU）
type Product struct {
	ID            int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Sn            string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"sn"`
	Name          string       `gorm:"type:varchar(128);not null" json:"name"`
	DeliveryTypes DeliveryType `gorm:"not null" json:"delivery_types"` // 支持的交付方式位集
	BrandCode     string       `gorm:"type:varchar(64);index" json:"brand_code"`
	StoreCode     string       `gorm:"type:varchar(64);index" json:"store_code"`
	CatOne        int64        `gorm:"index" json:"cat_one"` // 分类路径（1-3级）
	CatTwo        int64        `json:"cat_two"`
	CatThree      int64        `json:"cat_three"`
	SellTotal     int          `gorm:"not null;default:0" json:"sell_total"`
	Status        int          `gorm:"not null;default:1" json:"status"`
	IsDel         int          `gorm:"not null;default:0" json:"is_del"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}

// Unit 规格（SKU）
// IsSplit 为 1 时该 SKU 参与销售分成；不变量：Price 必须大于
// MainSaleSplit + SaleSplit，否则卖一件亏一件
type Unit struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Sn            string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"sn"`
	ProductSn     string    `gorm:"type:varchar(64);index;not null" json:"product_sn"`
	Name          string    `gorm:"type:varchar(128);not null" json:"name"`
	Cover         string    `gorm:"type:varchar(255)" json:"cover"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity      int       `gorm:"not null;default:0" json:"quantity"` // 库存
	IsSplit       int       `gorm:"not null;default:0" json:"is_split"`
	MainSaleSplit float64   `gorm:"type:decimal(10,2);not null;default:0" json:"main_sale_split"` // 每件总销售分成
	SaleSplit     float64   `gorm:"type:decimal(10,2);not null;default:0" json:"sale_split"`      // 每件销售分成
	SellTotal     int       `gorm:"not null;default:0" json:"sell_total"`
	IsDel         int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Unit) TableName() string {
	return "unit"
}

// UnitAttr 规格属性（颜色、尺码等），下单时拼接进订单项快照
type UnitAttr struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitSn string `gorm:"type:varchar(64);index;not null" json:"unit_sn"`
	Name   string `gorm:"type:varchar(64);not null" json:"name"`
	Value  string `gorm:"type:varchar(64);not null" json:"value"`
}

func (UnitAttr) TableName() string {
	return "unit_attr"
}
