package model

import (
	"time"
)

const (
	BindStatusOffline = 0
	BindStatusOnline  = 1
)

// ============================================================================
// 销售关系：两层森林 + 自环
// ============================================================================
//
// 总销售 ↔ 销售、销售 ↔ 用户两套边集。新晋升的总销售/销售会物化
// 一条自环（自己绑自己），使分成链查找对所有用户形式一致：
// 任何 uid 沿 SaleUserBind 找到销售，再沿 MainSaleBind 找到总销售。
//
// 约束：一个销售至多绑一个总销售，一个用户至多绑一个销售
// （is_del=0 且 status=Online 的有效边）。
// ============================================================================

// MainSaleBind 总销售-销售绑定边
type MainSaleBind struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MainSaleUID int64     `gorm:"index:idx_main_sale,unique;not null" json:"main_sale_uid"`
	SaleUID     int64     `gorm:"index:idx_main_sale,unique;index;not null" json:"sale_uid"`
	Status      int       `gorm:"not null;default:1" json:"status"`
	IsDel       int       `gorm:"index:idx_main_sale,unique;not null;default:0" json:"is_del"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MainSaleBind) TableName() string {
	return "main_sale_bind"
}

// SaleUserBind 销售-用户绑定边
type SaleUserBind struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleUID   int64     `gorm:"index:idx_sale_user,unique;not null" json:"sale_uid"`
	UserID    int64     `gorm:"index:idx_sale_user,unique;index;not null" json:"user_id"`
	Status    int       `gorm:"not null;default:1" json:"status"`
	IsDel     int       `gorm:"index:idx_sale_user,unique;not null;default:0" json:"is_del"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SaleUserBind) TableName() string {
	return "sale_user_bind"
}

// StoreEmployee 门店员工绑定
// 核销校验要求操作员在核销单的门店在职且持有核销员角色
type StoreEmployee struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	StoreCode string    `gorm:"type:varchar(64);index;not null" json:"store_code"`
	Status    int       `gorm:"not null;default:1" json:"status"`
	IsDel     int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoreEmployee) TableName() string {
	return "store_employee"
}
