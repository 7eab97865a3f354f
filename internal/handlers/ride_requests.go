package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/lifecycle"
	"github.com/quickride/quickride-backend/internal/matching"
	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/internal/services"
	"github.com/quickride/quickride-backend/pkg/utils"
)

// EstimateFareQuote quotes a fare and ETA for a prospective trip without
// creating anything. The quote is deterministic, so the client can re-request
// it and show the same price.
func EstimateFareQuote() gin.HandlerFunc {
	return func(c *gin.Context) {
		pickupLat, err1 := strconv.ParseFloat(c.Query("pickupLat"), 64)
		pickupLng, err2 := strconv.ParseFloat(c.Query("pickupLng"), 64)
		destLat, err3 := strconv.ParseFloat(c.Query("destLat"), 64)
		destLng, err4 := strconv.ParseFloat(c.Query("destLng"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.JSON(400, gin.H{"error": "pickupLat, pickupLng, destLat and destLng are required"})
			return
		}

		serviceClass := c.DefaultQuery("serviceClass", models.VehicleClassCar)
		if !models.IsValidVehicleClass(serviceClass) {
			c.JSON(400, gin.H{"error": "Invalid service class"})
			return
		}

		estimate := utils.EstimateFare(pickupLat, pickupLng, destLat, destLng, serviceClass)
		eta := utils.EstimateETA(pickupLat, pickupLng, destLat, destLng, serviceClass)

		c.JSON(200, gin.H{
			"estimate":      estimate,
			"etaMinutes":    eta,
			"formattedFare": utils.FormatCurrencyDisplay(estimate.TotalFare),
		})
	}
}

type CreateRideRequestInput struct {
	Pickup struct {
		Lat     float64 `json:"lat" binding:"required"`
		Lng     float64 `json:"lng" binding:"required"`
		Address string  `json:"address" binding:"required"`
	} `json:"pickup" binding:"required"`
	Destination struct {
		Lat     float64 `json:"lat" binding:"required"`
		Lng     float64 `json:"lng" binding:"required"`
		Address string  `json:"address" binding:"required"`
	} `json:"destination" binding:"required"`
	ServiceClass string `json:"serviceClass" binding:"required"`
	Notes        string `json:"notes"`
}

// CreateRideRequest creates a pending ride request and immediately runs a
// matching attempt. A failed match leaves the request pending; the rider can
// retry or cancel.
func CreateRideRequest(db *gorm.DB, matcher *matching.Service, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")
		if c.GetString("userType") != string(models.UserTypeRider) {
			c.JSON(403, gin.H{"error": "Only riders can request rides"})
			return
		}

		var input CreateRideRequestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Pickup.Lat < -90 || input.Pickup.Lat > 90 ||
			input.Destination.Lat < -90 || input.Destination.Lat > 90 {
			c.JSON(400, gin.H{"error": "Invalid latitude"})
			return
		}
		if input.Pickup.Lng < -180 || input.Pickup.Lng > 180 ||
			input.Destination.Lng < -180 || input.Destination.Lng > 180 {
			c.JSON(400, gin.H{"error": "Invalid longitude"})
			return
		}
		if !models.IsValidVehicleClass(input.ServiceClass) {
			c.JSON(400, gin.H{"error": "Invalid service class"})
			return
		}

		estimate := utils.EstimateFare(
			input.Pickup.Lat, input.Pickup.Lng,
			input.Destination.Lat, input.Destination.Lng,
			input.ServiceClass,
		)
		duration := utils.EstimateETA(
			input.Pickup.Lat, input.Pickup.Lng,
			input.Destination.Lat, input.Destination.Lng,
			input.ServiceClass,
		)

		request := models.RideRequest{
			RiderID:       riderID,
			PickupLat:     input.Pickup.Lat,
			PickupLng:     input.Pickup.Lng,
			PickupAddr:    input.Pickup.Address,
			DestLat:       input.Destination.Lat,
			DestLng:       input.Destination.Lng,
			DestAddr:      input.Destination.Address,
			ServiceClass:  input.ServiceClass,
			EstimatedFare: estimate.TotalFare,
			DistanceKm:    estimate.DistanceKm,
			DurationMin:   duration,
			Notes:         input.Notes,
			Status:        models.RequestStatusPending,
		}

		if err := db.Create(&request).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create ride request"})
			return
		}

		ctx := c.Request.Context()
		match, err := matcher.AutoMatch(ctx, request.ID)
		if err != nil {
			log.Printf("Matching failed for request %d: %v", request.ID, err)
		}

		if err := services.PublishMatchResult(ctx, request.ID, match.Matched, match.DriverID); err != nil {
			log.Printf("Failed to publish match result for request %d: %v", request.ID, err)
		}

		// Push the offer over the driver's live socket alongside the
		// persisted notification the matcher already created
		if match.Matched {
			hub.SendMatchOffer(match.DriverID, services.MatchOffer{
				RequestID:  request.ID,
				DistanceKm: match.DistanceKm,
				EtaMinutes: match.EtaMinutes,
			})
		}

		c.JSON(201, gin.H{
			"message":       "Ride request created",
			"requestId":     request.ID,
			"status":        request.Status,
			"estimatedFare": request.EstimatedFare,
			"formattedFare": utils.FormatCurrencyDisplay(request.EstimatedFare),
			"distanceKm":    request.DistanceKm,
			"durationMin":   request.DurationMin,
			"match":         match,
		})
	}
}

// GetRideRequest returns a single ride request to its rider, the driver who
// accepted it, or an admin.
func GetRideRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid request ID"})
			return
		}

		var request models.RideRequest
		if err := db.Preload("Rider").First(&request, requestID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride request not found"})
			return
		}

		if !canViewRequest(db, &request, userID, userType) {
			c.JSON(403, gin.H{"error": "Unauthorized to view this ride request"})
			return
		}

		response := gin.H{
			"requestId": request.ID,
			"status":    request.Status,
			"pickup": gin.H{
				"lat":     request.PickupLat,
				"lng":     request.PickupLng,
				"address": request.PickupAddr,
			},
			"destination": gin.H{
				"lat":     request.DestLat,
				"lng":     request.DestLng,
				"address": request.DestAddr,
			},
			"serviceClass":  request.ServiceClass,
			"estimatedFare": request.EstimatedFare,
			"formattedFare": utils.FormatCurrencyDisplay(request.EstimatedFare),
			"distanceKm":    request.DistanceKm,
			"durationMin":   request.DurationMin,
			"notes":         request.Notes,
			"createdAt":     request.CreatedAt,
		}

		if userType != string(models.UserTypeRider) && request.Rider != nil {
			response["rider"] = gin.H{
				"id":       request.Rider.ID,
				"username": request.Rider.Username,
				"phone":    request.Rider.PhoneNumber,
				"rating":   request.Rider.Rating,
			}
		}

		// Attach the active ride once a driver has committed
		var ride models.Ride
		if err := db.Preload("Driver").Preload("Vehicle").
			Where("request_id = ? AND status != ?", request.ID, models.RideStatusCancelled).
			First(&ride).Error; err == nil {
			rideInfo := gin.H{
				"rideId": ride.ID,
				"status": ride.Status,
			}
			if ride.Driver != nil {
				rideInfo["driver"] = gin.H{
					"id":       ride.Driver.ID,
					"username": ride.Driver.Username,
					"phone":    ride.Driver.PhoneNumber,
					"rating":   ride.Driver.Rating,
				}
			}
			if ride.Vehicle != nil {
				rideInfo["vehicle"] = gin.H{
					"class":        ride.Vehicle.VehicleClass,
					"make":         ride.Vehicle.Make,
					"model":        ride.Vehicle.ModelName,
					"licensePlate": ride.Vehicle.LicensePlate,
					"color":        ride.Vehicle.Color,
				}
			}
			response["ride"] = rideInfo
		}

		c.JSON(200, response)
	}
}

func canViewRequest(db *gorm.DB, request *models.RideRequest, userID uint, userType string) bool {
	switch userType {
	case string(models.UserTypeAdmin):
		return true
	case string(models.UserTypeRider):
		return request.RiderID == userID
	case string(models.UserTypeDriver):
		// The matched driver may view; anyone else sees nothing. A driver is
		// "matched" once a ride row exists or a ride_request notification was
		// addressed to them.
		var count int64
		db.Model(&models.Ride{}).
			Where("request_id = ? AND driver_id = ?", request.ID, userID).
			Count(&count)
		if count > 0 {
			return true
		}
		db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ? AND data->>'requestId' = ?",
				userID, models.NotificationTypeRideRequest, strconv.FormatUint(uint64(request.ID), 10)).
			Count(&count)
		return count > 0
	}
	return false
}

// ListMyRideRequests lists the authenticated rider's requests, newest first
func ListMyRideRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		query := db.Where("rider_id = ?", riderID)
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var requests []models.RideRequest
		if err := query.Order("created_at DESC").Limit(50).Find(&requests).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride requests"})
			return
		}

		c.JSON(200, gin.H{"requests": requests, "count": len(requests)})
	}
}

// ListAllRideRequests lists every ride request for admins, newest first
func ListAllRideRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("Rider")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
		if pageSize < 1 || pageSize > 200 {
			pageSize = 50
		}

		var requests []models.RideRequest
		if err := query.Order("created_at DESC").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&requests).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride requests"})
			return
		}

		c.JSON(200, gin.H{"requests": requests, "count": len(requests), "page": page})
	}
}

// ListAllRides lists every ride for admins, newest first
func ListAllRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("Request").Preload("Driver")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
		if pageSize < 1 || pageSize > 200 {
			pageSize = 50
		}

		var rides []models.Ride
		if err := query.Order("created_at DESC").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rides"})
			return
		}

		c.JSON(200, gin.H{"rides": rides, "count": len(rides), "page": page})
	}
}

// CancelRideRequest cancels a pending or accepted request. The rider owns
// the cancel; once the trip is in progress cancellation moves to the ride.
func CancelRideRequest(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid request ID"})
			return
		}

		var request models.RideRequest
		if err := db.First(&request, requestID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride request not found"})
			return
		}

		if request.RiderID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to cancel this ride request"})
			return
		}

		next, err := lifecycle.NextRequestStatus(request.Status, lifecycle.RequestCancel)
		if err != nil {
			var invalid *lifecycle.InvalidTransitionError
			if errors.As(err, &invalid) {
				c.JSON(409, gin.H{"error": invalid.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to cancel ride request"})
			return
		}

		// Guard against a concurrent accept between the read and the write
		result := db.Model(&models.RideRequest{}).
			Where("id = ? AND status = ?", request.ID, request.Status).
			Update("status", next)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to cancel ride request"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(409, gin.H{"error": "Ride request changed state, try again"})
			return
		}

		// If a driver already committed, cancel their ride and let them know
		var ride models.Ride
		if err := db.Where("request_id = ? AND status != ?", request.ID, models.RideStatusCancelled).
			First(&ride).Error; err == nil {
			db.Model(&models.Ride{}).Where("id = ?", ride.ID).
				Update("status", models.RideStatusCancelled)

			notification := models.NewNotification(
				ride.DriverID,
				"Ride Cancelled",
				"The rider cancelled the ride request.",
				models.NotificationTypeRideStatus,
				models.RideStatusPayload{RequestID: request.ID, RideID: ride.ID, Status: models.RideStatusCancelled},
			)
			if err := db.Create(&notification).Error; err == nil {
				notifier.Notify(c.Request.Context(), notification)
			}
		}

		hub.SendRideStatusUpdate(request.RiderID, services.RideStatusUpdate{
			RequestID: request.ID,
			Status:    next,
			Message:   "Ride request cancelled",
		})

		c.JSON(200, gin.H{
			"message":   "Ride request cancelled",
			"requestId": request.ID,
			"status":    next,
		})
	}
}
