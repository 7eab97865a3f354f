package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
)

// ListNotifications returns the authenticated user's notifications, newest
// first. Pass unread=true to only see what hasn't been read yet.
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		query := db.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			query = query.Where("read = ?", false)
		}

		var notifications []models.Notification
		if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch notifications"})
			return
		}

		var unreadCount int64
		db.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Count(&unreadCount)

		c.JSON(200, gin.H{
			"notifications": notifications,
			"count":         len(notifications),
			"unreadCount":   unreadCount,
		})
	}
}

// MarkNotificationRead marks one of the user's notifications as read
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		notificationID, err := strconv.ParseUint(c.Param("notificationId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid notification ID"})
			return
		}

		result := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", notificationID, userID).
			Update("read", true)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update notification"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(200, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsRead marks every unread notification as read
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		result := db.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", userID, false).
			Update("read", true)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update notifications"})
			return
		}

		c.JSON(200, gin.H{
			"message": "All notifications marked as read",
			"updated": result.RowsAffected,
		})
	}
}

type RegisterTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// RegisterFCMToken stores the device's push token on the user
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input RegisterTokenInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", input.Token).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to register token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token registered successfully"})
	}
}

// RemoveFCMToken clears the user's push token, typically on logout
func RemoveFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", "").Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token removed successfully"})
	}
}

// GetNotificationPreferences returns the user's preferences, creating the
// default row on first read.
func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var prefs models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			prefs = *models.DefaultPreferences(userID)
			if err := db.Create(&prefs).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to create notification preferences"})
				return
			}
		}

		c.JSON(200, prefs)
	}
}

type UpdatePreferencesInput struct {
	PushEnabled       *bool `json:"pushEnabled"`
	RideRequestAlerts *bool `json:"rideRequestAlerts"`
	RideStatusAlerts  *bool `json:"rideStatusAlerts"`
}

// UpdateNotificationPreferences updates the fields present in the body
func UpdateNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input UpdatePreferencesInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var prefs models.NotificationPreference
		if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			prefs = *models.DefaultPreferences(userID)
			if err := db.Create(&prefs).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to create notification preferences"})
				return
			}
		}

		if input.PushEnabled != nil {
			prefs.PushEnabled = *input.PushEnabled
		}
		if input.RideRequestAlerts != nil {
			prefs.RideRequestAlerts = *input.RideRequestAlerts
		}
		if input.RideStatusAlerts != nil {
			prefs.RideStatusAlerts = *input.RideStatusAlerts
		}

		if err := db.Save(&prefs).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update notification preferences"})
			return
		}

		c.JSON(200, gin.H{"message": "Preferences updated", "preferences": prefs})
	}
}
