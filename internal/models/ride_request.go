package models

import (
	"gorm.io/gorm"
)

// RideRequest status constants
const (
	RequestStatusPending    = "pending"
	RequestStatusAccepted   = "accepted"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusCancelled  = "cancelled"
)

// RideRequest represents a rider's ask for transport
type RideRequest struct {
	gorm.Model
	RiderID       uint    `json:"riderId" gorm:"not null;index"`
	PickupLat     float64 `json:"pickupLat" gorm:"not null"`
	PickupLng     float64 `json:"pickupLng" gorm:"not null"`
	PickupAddr    string  `json:"pickupAddress" gorm:"not null"`
	DestLat       float64 `json:"destLat" gorm:"not null"`
	DestLng       float64 `json:"destLng" gorm:"not null"`
	DestAddr      string  `json:"destAddress" gorm:"not null"`
	ServiceClass  string  `json:"serviceClass" gorm:"column:service_class;not null"`
	EstimatedFare float64 `json:"estimatedFare" gorm:"column:estimated_fare;not null"`
	DistanceKm    float64 `json:"distanceKm,omitempty"`
	DurationMin   int     `json:"durationMin,omitempty"` // estimated trip duration in minutes
	Notes         string  `json:"notes,omitempty"`
	Status        string  `json:"status" gorm:"not null;default:'pending';index"`
	Rider         *User   `json:"rider,omitempty" gorm:"foreignKey:RiderID"`
}

// TableName specifies the table name
func (RideRequest) TableName() string {
	return "ride_requests"
}
