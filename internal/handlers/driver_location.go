package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quickride/quickride-backend/internal/matching"
	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/internal/services"
)

type ReportLocationInput struct {
	Lat          float64 `json:"lat" binding:"required"`
	Lng          float64 `json:"lng" binding:"required"`
	Heading      float64 `json:"heading"`
	Speed        float64 `json:"speed"`
	Accuracy     float64 `json:"accuracy"`
	VehicleClass string  `json:"vehicleClass"`
}

// ReportLocation upserts the driver's latest position sample. The sample is
// mirrored into Redis for cheap live reads and broadcast over the hub so
// riders tracking the driver see movement without polling.
func ReportLocation(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input ReportLocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Lat < -90 || input.Lat > 90 {
			c.JSON(400, gin.H{"error": "Invalid latitude"})
			return
		}
		if input.Lng < -180 || input.Lng > 180 {
			c.JSON(400, gin.H{"error": "Invalid longitude"})
			return
		}
		if input.VehicleClass != "" && !models.IsValidVehicleClass(input.VehicleClass) {
			c.JSON(400, gin.H{"error": "Invalid vehicle class"})
			return
		}

		location := models.DriverLocation{
			DriverID:     driverID,
			Latitude:     input.Lat,
			Longitude:    input.Lng,
			Heading:      input.Heading,
			Speed:        input.Speed,
			Accuracy:     input.Accuracy,
			Status:       models.DriverStatusOnline,
			VehicleClass: input.VehicleClass,
			CapturedAt:   time.Now(),
		}

		// One row per driver: conflicting reports replace the previous sample
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"latitude", "longitude", "heading", "speed", "accuracy",
				"status", "vehicle_class", "captured_at", "updated_at",
			}),
		}).Create(&location).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to save location"})
			return
		}

		ctx := c.Request.Context()
		if err := services.SetDriverLocation(ctx, driverID, input.Lat, input.Lng, input.Heading, input.Speed); err != nil {
			log.Printf("Failed to cache driver %d location: %v", driverID, err)
		}
		if err := services.PublishDriverLocation(ctx, driverID, input.Lat, input.Lng, input.Heading); err != nil {
			log.Printf("Failed to publish driver %d location: %v", driverID, err)
		}

		update := services.DriverLocationUpdate{DriverID: driverID}
		update.Location.Lat = input.Lat
		update.Location.Lng = input.Lng
		update.Location.Heading = input.Heading
		hub.SendDriverLocationUpdate(update)

		c.JSON(200, gin.H{
			"message":    "Location updated",
			"capturedAt": location.CapturedAt,
		})
	}
}

type UpdateDriverStatusInput struct {
	Status string `json:"status" binding:"required,oneof=online busy offline"`
}

// UpdateDriverStatus sets the driver's presence status
func UpdateDriverStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input UpdateDriverStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		result := db.Model(&models.DriverLocation{}).
			Where("driver_id = ?", driverID).
			Update("status", input.Status)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update status"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "No location on record. Report a location first."})
			return
		}

		if err := services.SetDriverStatus(c.Request.Context(), driverID, input.Status); err != nil {
			log.Printf("Failed to cache driver %d status: %v", driverID, err)
		}

		c.JSON(200, gin.H{"message": "Status updated", "status": input.Status})
	}
}

// GetNearbyDrivers lists drivers eligible to serve a pickup point, nearest
// first. Riders use this to sanity-check availability before requesting.
func GetNearbyDrivers(matcher *matching.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid lat parameter"})
			return
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid lng parameter"})
			return
		}

		serviceClass := c.DefaultQuery("serviceClass", models.VehicleClassCar)
		if !models.IsValidVehicleClass(serviceClass) {
			c.JSON(400, gin.H{"error": "Invalid service class"})
			return
		}

		radiusKm := 0.0
		if raw := c.Query("radiusKm"); raw != "" {
			radiusKm, err = strconv.ParseFloat(raw, 64)
			if err != nil || radiusKm <= 0 {
				c.JSON(400, gin.H{"error": "Invalid radiusKm parameter"})
				return
			}
		}

		candidates, err := matcher.Discover(c.Request.Context(), lat, lng, serviceClass, radiusKm)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to find nearby drivers"})
			return
		}

		drivers := make([]gin.H, 0, len(candidates))
		for _, candidate := range candidates {
			drivers = append(drivers, gin.H{
				"driverId":   candidate.Location.DriverID,
				"lat":        candidate.Location.Latitude,
				"lng":        candidate.Location.Longitude,
				"heading":    candidate.Location.Heading,
				"distanceKm": candidate.DistanceKm,
				"rating":     candidate.Rating,
				"capturedAt": candidate.Location.CapturedAt,
			})
		}

		c.JSON(200, gin.H{"drivers": drivers, "count": len(drivers)})
	}
}

// GetDriverLiveLocation returns a driver's most recent position, preferring
// the Redis cache and falling back to the stored sample.
func GetDriverLiveLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, err := strconv.ParseUint(c.Param("driverId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver ID"})
			return
		}

		ctx := c.Request.Context()
		if lat, lng, heading, err := services.GetDriverLocation(ctx, uint(driverID)); err == nil {
			response := gin.H{
				"driverId": driverID,
				"lat":      lat,
				"lng":      lng,
				"heading":  heading,
				"source":   "live",
			}
			if status, err := services.GetDriverStatus(ctx, uint(driverID)); err == nil {
				response["status"] = status
			}
			c.JSON(200, response)
			return
		}

		var location models.DriverLocation
		if err := db.Where("driver_id = ?", driverID).First(&location).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver location not found"})
			return
		}

		c.JSON(200, gin.H{
			"driverId":   location.DriverID,
			"lat":        location.Latitude,
			"lng":        location.Longitude,
			"heading":    location.Heading,
			"status":     location.Status,
			"capturedAt": location.CapturedAt,
			"source":     "stored",
		})
	}
}
