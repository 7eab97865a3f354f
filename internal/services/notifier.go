package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
)

// Notifier fans persisted notifications out to live channels: the WebSocket
// hub for connected clients and FCM for everyone else. It satisfies the
// matcher's Notifier interface. Delivery is best-effort; the persisted row
// is the source of truth.
type Notifier struct {
	db  *gorm.DB
	hub *Hub
}

func NewNotifier(db *gorm.DB, hub *Hub) *Notifier {
	return &Notifier{db: db, hub: hub}
}

// Notify delivers a notification that has already been persisted.
func (n *Notifier) Notify(ctx context.Context, notification models.Notification) {
	if n.hub != nil {
		message := WebSocketMessage{Type: notification.Type, Data: notification}
		if data, err := json.Marshal(message); err == nil {
			n.hub.BroadcastToUser(notification.UserID, data)
		}
	}

	if !n.pushAllowed(notification) {
		return
	}

	var user models.User
	if err := n.db.First(&user, notification.UserID).Error; err != nil || user.FCMToken == "" {
		return
	}

	var data map[string]interface{}
	if len(notification.Data) > 0 {
		_ = json.Unmarshal(notification.Data, &data)
	}

	payload := PushPayload{
		Title: notification.Title,
		Body:  notification.Message,
		Data:  data,
	}
	if err := SendPushToToken(ctx, user.FCMToken, payload); err != nil {
		log.Printf("Failed to push notification to user %d: %v", notification.UserID, err)
	}
}

// pushAllowed checks the recipient's notification preferences. Missing
// preferences default to allowing everything.
func (n *Notifier) pushAllowed(notification models.Notification) bool {
	var prefs models.NotificationPreference
	err := n.db.Where("user_id = ?", notification.UserID).First(&prefs).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load notification preferences for user %d: %v", notification.UserID, err)
		}
		return true
	}

	if !prefs.PushEnabled {
		return false
	}
	switch notification.Type {
	case models.NotificationTypeRideRequest:
		return prefs.RideRequestAlerts
	case models.NotificationTypeRideAccepted, models.NotificationTypeRideStatus:
		return prefs.RideStatusAlerts
	}
	return true
}
