package models

import (
	"time"

	"gorm.io/datatypes"
)

type BookingType string

const (
	BookingHotel  BookingType = "hotel"
	BookingGarden BookingType = "garden"
)

func (t BookingType) Valid() bool { return t == BookingHotel || t == BookingGarden }

type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked-in"
	BookingCheckedOut BookingStatus = "checked-out"
	BookingCancelled  BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

type PaymentType string

const (
	PaymentAdvance PaymentType = "advance"
	PaymentPart    PaymentType = "partial"
	PaymentFinal   PaymentType = "final"
	PaymentRefund  PaymentType = "refund"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentAdvance, PaymentPart, PaymentFinal, PaymentRefund:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodUPI    PaymentMethod = "upi"
	MethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI, MethodOnline:
		return true
	}
	return false
}

// Payment is stored inside Booking.Payments and never on its own.
type Payment struct {
	ID            string        `json:"id"`
	Amount        float64       `json:"amount"`
	Type          PaymentType   `json:"type"`
	Method        PaymentMethod `json:"method"`
	Date          time.Time     `json:"date"`
	ReceiptNumber int64         `json:"receipt_number,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

type Booking struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Type           BookingType `gorm:"size:10;index;not null" json:"type"`
	CustomerMobile string      `gorm:"size:15;index;not null" json:"customer_mobile"`
	CustomerName   string      `gorm:"size:100" json:"customer_name"`
	RoomID         *uint       `gorm:"index" json:"room_id"`
	StartDate      time.Time   `gorm:"index;not null" json:"start_date"`
	EndDate        time.Time   `gorm:"index;not null" json:"end_date"`

	BasePrice       float64 `gorm:"not null;default:0" json:"base_price"`
	DiscountPercent float64 `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  float64 `gorm:"not null;default:0" json:"discount_amount"`
	GSTEnabled      bool    `gorm:"not null;default:false" json:"gst_enabled"`
	GSTPercentage   float64 `gorm:"not null;default:0" json:"gst_percentage"`
	GSTAmount       float64 `gorm:"not null;default:0" json:"gst_amount"`
	TotalAmount     float64 `gorm:"not null" json:"total_amount"`

	Payments         datatypes.JSONSlice[Payment] `json:"payments"`
	PaidAmount       float64                      `gorm:"not null;default:0" json:"paid_amount"`
	RemainingBalance float64                      `gorm:"not null;default:0" json:"remaining_balance"`
	PaymentStatus    PaymentStatus                `gorm:"size:20;not null;default:pending" json:"payment_status"`
	Status           BookingStatus                `gorm:"size:20;index;not null;default:confirmed" json:"status"`

	// AdvancePayment is the amount declared at creation. Rows written before
	// payments were itemized only carry this field.
	AdvancePayment float64 `gorm:"not null;default:0" json:"advance_payment"`

	EventType  string     `gorm:"size:50" json:"event_type,omitempty"`
	EventTime  string     `gorm:"size:20" json:"event_time,omitempty"`
	GuestCount *int       `json:"guest_count,omitempty"`
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	Notes      string     `gorm:"size:500" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
