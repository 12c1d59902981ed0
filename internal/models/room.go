package models

import "time"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomCleaning    RoomStatus = "cleaning"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomCleaning:
		return true
	}
	return false
}

type Room struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Number      string     `gorm:"size:20;uniqueIndex;not null" json:"number"`
	Type        string     `gorm:"size:50" json:"type"`
	Floor       *int       `json:"floor,omitempty"`
	Capacity    int        `gorm:"not null;default:2" json:"capacity"`
	Price       float64    `gorm:"not null;default:0" json:"price"`
	Status      RoomStatus `gorm:"size:20;index;not null;default:available" json:"status"`
	Description string     `gorm:"size:500" json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
