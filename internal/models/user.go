package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleSuperAdmin    UserRole = "super_admin"
	RoleOwner         UserRole = "owner"
	RoleCafeManager   UserRole = "cafe_manager"
	RoleBarManager    UserRole = "bar_manager"
	RoleHotelManager  UserRole = "hotel_manager"
	RoleGardenManager UserRole = "garden_manager"
	RoleWaiter        UserRole = "waiter"
	RoleKitchen       UserRole = "kitchen"
	RoleBartender     UserRole = "bartender"
	RoleReception     UserRole = "reception"
)

var validRoles = map[UserRole]bool{
	RoleSuperAdmin:    true,
	RoleOwner:         true,
	RoleCafeManager:   true,
	RoleBarManager:    true,
	RoleHotelManager:  true,
	RoleGardenManager: true,
	RoleWaiter:        true,
	RoleKitchen:       true,
	RoleBartender:     true,
	RoleReception:     true,
}

func (r UserRole) Valid() bool { return validRoles[r] }

func (r UserRole) IsManager() bool { return strings.HasSuffix(string(r), "_manager") }

// CanAccessFinancials covers revenue, GST and settlement data.
func (r UserRole) CanAccessFinancials() bool {
	return r == RoleSuperAdmin || r == RoleOwner || r.IsManager()
}

// SeesAllUnits reports whether the role ignores the user's unit binding.
func (r UserRole) SeesAllUnits() bool {
	return r == RoleSuperAdmin || r == RoleOwner
}

type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Email        string       `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Mobile       string       `gorm:"size:15" json:"mobile,omitempty"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	Role         UserRole     `gorm:"size:20;not null" json:"role"`
	BusinessUnit BusinessUnit `gorm:"size:10;not null;default:all" json:"business_unit"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CanAccessUnit reports whether a user with role and own unit may touch
// data of the requested unit.
func CanAccessUnit(role UserRole, own, requested BusinessUnit) bool {
	if role.SeesAllUnits() || own == UnitAll {
		return true
	}
	return own == requested
}
