package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/internal/services"
)

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		avatarURL := user.AvatarURL
		if avatarURL != "" {
			avatarURL = services.GetImageURL(avatarURL)
		}

		c.JSON(200, gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"username":    user.Username,
			"phoneNumber": user.PhoneNumber,
			"userType":    user.UserType,
			"rating":      user.Rating,
			"totalRides":  user.TotalRides,
			"avatarUrl":   avatarURL,
			"isActive":    user.IsActive,
		})
	}
}

type UpdateProfileInput struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// UpdateProfile updates the authenticated user's editable fields
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input UpdateProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.Username != "" {
			user.Username = input.Username
		}
		if input.PhoneNumber != "" {
			user.PhoneNumber = input.PhoneNumber
		}
		if input.Password != "" {
			if len(input.Password) < 6 {
				c.JSON(400, gin.H{"error": "Password must be at least 6 characters"})
				return
			}
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to hash password"})
				return
			}
			user.PasswordHash = string(hashedPassword)
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, gin.H{
			"message": "Profile updated successfully",
			"user": gin.H{
				"id":          user.ID,
				"email":       user.Email,
				"username":    user.Username,
				"phoneNumber": user.PhoneNumber,
				"userType":    user.UserType,
			},
		})
	}
}

// UploadAvatar stores a profile photo and records its path on the user
func UploadAvatar(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		file, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(400, gin.H{"error": "Avatar image is required"})
			return
		}

		if file.Size > 5*1024*1024 {
			c.JSON(400, gin.H{"error": "Avatar image must be smaller than 5MB"})
			return
		}

		imagePath, err := services.UploadImage(file, "avatars")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload avatar: " + err.Error()})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("avatar_url", imagePath).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save avatar"})
			return
		}

		// The replaced photo is garbage once the new path is saved
		if user.AvatarURL != "" {
			if err := services.DeleteImage(user.AvatarURL); err != nil {
				log.Printf("Failed to delete old avatar for user %d: %v", userID, err)
			}
		}

		c.JSON(200, gin.H{
			"message":   "Avatar uploaded successfully",
			"avatarUrl": services.GetImageURL(imagePath),
		})
	}
}
