package models

import "time"

type Customer struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Mobile            string       `gorm:"size:15;uniqueIndex;not null" json:"mobile"`
	Name              string       `gorm:"size:100" json:"name"`
	VisitCount        int          `gorm:"not null;default:0" json:"visit_count"`
	TotalSpent        float64      `gorm:"not null;default:0" json:"total_spent"`
	PreferredBusiness BusinessUnit `gorm:"size:10" json:"preferred_business,omitempty"`
	LastVisit         *time.Time   `json:"last_visit,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
