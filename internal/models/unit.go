package models

import "time"

type BusinessUnit string

const (
	UnitCafe   BusinessUnit = "cafe"
	UnitBar    BusinessUnit = "bar"
	UnitHotel  BusinessUnit = "hotel"
	UnitGarden BusinessUnit = "garden"
	UnitAll    BusinessUnit = "all"
)

// OperationalUnits are the units that produce revenue. UnitAll is only an
// access wildcard.
var OperationalUnits = []BusinessUnit{UnitCafe, UnitBar, UnitHotel, UnitGarden}

func (u BusinessUnit) Operational() bool {
	for _, x := range OperationalUnits {
		if u == x {
			return true
		}
	}
	return false
}

func (u BusinessUnit) Valid() bool { return u == UnitAll || u.Operational() }

// UnitSetting carries the per-unit knobs used by billing and settlements.
type UnitSetting struct {
	Unit            BusinessUnit `gorm:"primaryKey;size:10" json:"unit"`
	Name            string       `gorm:"size:100;not null" json:"name"`
	OwnerPercentage float64      `gorm:"not null" json:"owner_percentage"`
	GSTRate         float64      `gorm:"not null" json:"gst_rate"`
	GSTEnabled      bool         `gorm:"not null" json:"gst_enabled"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DefaultUnitSettings is the first-run configuration of the four units.
func DefaultUnitSettings() []UnitSetting {
	return []UnitSetting{
		{Unit: UnitCafe, Name: "Cafe", OwnerPercentage: 40, GSTRate: 5, GSTEnabled: true},
		{Unit: UnitBar, Name: "Bar", OwnerPercentage: 40, GSTRate: 18, GSTEnabled: true},
		{Unit: UnitHotel, Name: "Hotel", OwnerPercentage: 40, GSTRate: 5, GSTEnabled: false},
		{Unit: UnitGarden, Name: "Garden", OwnerPercentage: 40, GSTRate: 5, GSTEnabled: false},
	}
}
