package models

// Counter backs the database sequencer when Redis is not configured.
type Counter struct {
	ID    string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null"`
}
