package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Notification type tags. The Data payload is a closed union keyed by type:
// consumers can switch on Type and unmarshal into the matching payload struct.
const (
	NotificationTypeRideRequest  = "ride_request"
	NotificationTypeRideAccepted = "ride_accepted"
	NotificationTypeRideStatus   = "ride_status"
	NotificationTypeAlert        = "alert"
)

// Notification is a persisted message addressed to a user
type Notification struct {
	gorm.Model
	UserID  uint            `json:"userId" gorm:"not null;index"`
	Title   string          `json:"title" gorm:"not null"`
	Message string          `json:"message" gorm:"not null"`
	Type    string          `json:"type" gorm:"not null"`
	Data    json.RawMessage `json:"data,omitempty" gorm:"type:jsonb"`
	Read    bool            `json:"read" gorm:"not null;default:false"`
	User    *User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// RideRequestPayload is the Data payload for ride_request notifications
// sent to the matched driver.
type RideRequestPayload struct {
	RequestID          uint    `json:"requestId"`
	PickupAddress      string  `json:"pickupAddress"`
	DestinationAddress string  `json:"destinationAddress"`
	EstimatedFare      float64 `json:"estimatedFare"`
	ServiceClass       string  `json:"serviceClass"`
	DistanceKm         float64 `json:"distanceKm"`
	EtaMinutes         int     `json:"etaMinutes"`
}

// RideStatusPayload is the Data payload for ride_accepted and ride_status
// notifications.
type RideStatusPayload struct {
	RequestID uint   `json:"requestId"`
	RideID    uint   `json:"rideId,omitempty"`
	Status    string `json:"status"`
}

// AlertPayload is the Data payload for alert notifications.
type AlertPayload struct {
	RequestID uint   `json:"requestId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// NewNotification builds a notification with the payload marshaled into Data.
// Marshaling a plain struct cannot fail, so errors are ignored here.
func NewNotification(userID uint, title, message, typ string, payload interface{}) Notification {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Data:    data,
	}
}
