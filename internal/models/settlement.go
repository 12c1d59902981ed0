package models

import (
	"time"

	"gorm.io/datatypes"
)

type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// Settlement is derived from paid bills and can be regenerated at any time.
type Settlement struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	BusinessUnit    BusinessUnit      `gorm:"size:10;not null;uniqueIndex:idx_settlements_unit_month" json:"business_unit"`
	Month           string            `gorm:"size:7;not null;uniqueIndex:idx_settlements_unit_month" json:"month"`
	TotalRevenue    float64           `gorm:"not null;default:0" json:"total_revenue"`
	BillCount       int               `gorm:"not null;default:0" json:"bill_count"`
	OwnerPercentage float64           `gorm:"not null" json:"owner_percentage"`
	OwnerShare      float64           `gorm:"not null;default:0" json:"owner_share"`
	ManagerShare    float64           `gorm:"not null;default:0" json:"manager_share"`
	ByMethod        datatypes.JSONMap `json:"by_method,omitempty"`
	Status          SettlementStatus  `gorm:"size:20;not null;default:pending" json:"status"`
	SettlementDate  *time.Time        `json:"settlement_date,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
