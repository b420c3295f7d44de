package demo

import "time"

// Host is the machine an event was reported by.
type Host struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;uniqueIndex"`
}

// Event is one row of the sample events table.
type Event struct {
	ID           uint   `gorm:"primaryKey"`
	Title        string `gorm:"size:255;not null"`
	Kind         string `gorm:"size:32;index"`
	Severity     int
	Acknowledged *bool
	HostID       *uint
	Host         *Host
	HappenedAt   time.Time `gorm:"index"`
}

// Kinds lists the event kinds known to the filter form.
var Kinds = []string{"deploy", "incident", "maintenance", "audit"}
