package models

import (
	"time"

	"gorm.io/gorm"
)

// DriverStatus constants for location samples
const (
	DriverStatusOnline  = "online"
	DriverStatusBusy    = "busy"
	DriverStatusOffline = "offline"
)

// DriverLocation is the latest position report for a driver. Samples are
// upserted per driver (uniqueIndex on driver_id); a sample only counts as
// evidence of availability while it is fresh.
type DriverLocation struct {
	gorm.Model
	DriverID     uint      `json:"driverId" gorm:"not null;uniqueIndex"`
	Latitude     float64   `json:"lat" gorm:"not null"`
	Longitude    float64   `json:"lng" gorm:"not null"`
	Heading      float64   `json:"heading" gorm:"not null;default:0"`
	Speed        float64   `json:"speed,omitempty"`
	Accuracy     float64   `json:"accuracy,omitempty"`
	Status       string    `json:"status" gorm:"not null;default:'online'"` // online, busy, offline
	VehicleClass string    `json:"vehicleClass,omitempty" gorm:"column:vehicle_class"`
	CapturedAt   time.Time `json:"capturedAt" gorm:"column:captured_at;not null;index"`
	Driver       *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (DriverLocation) TableName() string {
	return "driver_locations"
}

// Age returns how long ago the sample was captured.
func (l *DriverLocation) Age(now time.Time) time.Duration {
	return now.Sub(l.CapturedAt)
}
