package models

import "time"

const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

// UserModel represents a portal account (customer, merchant staff or admin).
type UserModel struct {
	Base
	Username      string     `json:"username"   gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Mail          string     `json:"mail"`
	Password      string     `json:"-"          gorm:"not null"`
	Role          string     `json:"role"       gorm:"index;default:customer"` // customer | merchant | admin
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
