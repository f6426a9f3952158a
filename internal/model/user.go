package model

import (
	"time"
)

// Role 用户角色，位集表示（一个用户可同时持有多个角色）
type Role uint8

const (
	RoleMainSale Role = 1 << iota // 总销售
	RoleSale                      // 销售
	RoleAgent                     // 代理
	RoleWriteOff                  // 核销员
)

// User 用户表
// 外部身份（openid）首次登录时创建，ID 创建后不变
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OpenID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"open_id"`
	UnionID    string    `gorm:"type:varchar(64);index" json:"union_id"`
	Nickname   string    `gorm:"type:varchar(64)" json:"nickname"`
	Avatar     string    `gorm:"type:varchar(255)" json:"avatar"`
	Phone      string    `gorm:"type:varchar(20);index" json:"phone"`
	Roles      uint8     `gorm:"not null;default:0" json:"roles"` // Role 位集
	IsDel      int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// HasRole 是否持有指定角色
func (u *User) HasRole(r Role) bool {
	return u.Roles&uint8(r) != 0
}

// AddRole 追加角色
func (u *User) AddRole(r Role) {
	u.Roles |= uint8(r)
}

// Address 收货地址
type Address struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"type:varchar(32);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(20);not null" json:"phone"`
	Province  string    `gorm:"type:varchar(32)" json:"province"`
	City      string    `gorm:"type:varchar(32)" json:"city"`
	District  string    `gorm:"type:varchar(32)" json:"district"`
	Detail    string    `gorm:"type:varchar(255);not null" json:"detail"`
	IsDefault int       `gorm:"not null;default:0" json:"is_default"`
	IsDel     int       `gorm:"not null;default:0" json:"is_del"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Address) TableName() string {
	return "address"
}
