package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationPreference controls which push notifications a user receives.
// Persisted notification rows are always written; preferences only gate the
// FCM delivery.
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PushEnabled       bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`
	RideRequestAlerts bool `gorm:"column:ride_request_alerts;default:true" json:"rideRequestAlerts"`
	RideStatusAlerts  bool `gorm:"column:ride_status_alerts;default:true" json:"rideStatusAlerts"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:            userID,
		PushEnabled:       true,
		RideRequestAlerts: true,
		RideStatusAlerts:  true,
	}
}
