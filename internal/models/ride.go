package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride status constants
const (
	RideStatusWaiting    = "waiting"
	RideStatusPickedUp   = "picked_up"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
)

// Ride is the operational record once a driver has committed to a request.
// At most one non-cancelled ride should exist per request.
type Ride struct {
	gorm.Model
	RequestID       uint         `json:"requestId" gorm:"not null;index"`
	DriverID        uint         `json:"driverId" gorm:"not null;index"`
	VehicleID       uint         `json:"vehicleId" gorm:"not null"`
	Status          string       `json:"status" gorm:"not null;default:'waiting'"`
	PickupTime      *time.Time   `json:"pickupTime,omitempty" gorm:"column:pickup_time"`
	StartTime       *time.Time   `json:"startTime,omitempty" gorm:"column:start_time"`
	EndTime         *time.Time   `json:"endTime,omitempty" gorm:"column:end_time"`
	ActualFare      float64      `json:"actualFare,omitempty" gorm:"column:actual_fare"`
	PassengerRating *float64     `json:"passengerRating,omitempty" gorm:"column:passenger_rating"`
	DriverRating    *float64     `json:"driverRating,omitempty" gorm:"column:driver_rating"`
	Request         *RideRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Driver          *User        `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Vehicle         *Vehicle     `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}
