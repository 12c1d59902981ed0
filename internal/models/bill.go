package models

import (
	"time"

	"gorm.io/datatypes"
)

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
)

type BillItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Bill is the GST invoice of a cafe/bar order or a hotel/garden checkout.
// GrandTotal == (Subtotal - DiscountAmount) + GSTAmount.
type Bill struct {
	ID              uint                          `gorm:"primaryKey" json:"id"`
	BillNumber      string                        `gorm:"size:40;uniqueIndex;not null" json:"bill_number"`
	OrderRef        string                        `gorm:"size:64;index" json:"order_ref,omitempty"`
	BusinessUnit    BusinessUnit                  `gorm:"size:10;index;not null" json:"business_unit"`
	CustomerName    string                        `gorm:"size:100" json:"customer_name,omitempty"`
	CustomerMobile  string                        `gorm:"size:15" json:"customer_mobile,omitempty"`
	Items           datatypes.JSONSlice[BillItem] `json:"items"`
	Subtotal        float64                       `gorm:"not null" json:"subtotal"`
	DiscountPercent float64                       `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  float64                       `gorm:"not null;default:0" json:"discount_amount"`
	GSTPercent      float64                       `gorm:"not null;default:0" json:"gst_percent"`
	GSTAmount       float64                       `gorm:"not null;default:0" json:"gst_amount"`
	CGST            float64                       `gorm:"not null;default:0" json:"cgst"`
	SGST            float64                       `gorm:"not null;default:0" json:"sgst"`
	GrandTotal      float64                       `gorm:"not null" json:"grand_total"`
	PaymentMethod   PaymentMethod                 `gorm:"size:20" json:"payment_method"`
	PaymentStatus   BillStatus                    `gorm:"size:20;index;not null;default:pending" json:"payment_status"`
	AmountPaid      float64                       `gorm:"not null;default:0" json:"amount_paid"`
	Source          string                        `gorm:"size:20" json:"source,omitempty"`
	CreatedAt       time.Time                     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
}
