package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/lifecycle"
	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/internal/services"
	"github.com/quickride/quickride-backend/pkg/utils"
)

type AcceptRideInput struct {
	VehicleID uint `json:"vehicleId" binding:"required"`
}

// AcceptRide lets a driver claim a pending ride request. The claim is a
// conditional update on the request status, so when two drivers race only
// one transaction flips pending to accepted; the loser gets a conflict.
func AcceptRide(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		if c.GetString("userType") != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can accept ride requests"})
			return
		}

		requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid request ID"})
			return
		}

		var input AcceptRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var vehicle models.Vehicle
		if err := db.First(&vehicle, input.VehicleID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Vehicle not found"})
			return
		}
		if vehicle.DriverID != driverID || !vehicle.IsActive {
			c.JSON(403, gin.H{"error": "Vehicle is not yours or not active"})
			return
		}

		var request models.RideRequest
		if err := db.First(&request, requestID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride request not found"})
			return
		}

		next, err := lifecycle.NextRequestStatus(request.Status, lifecycle.RequestAccept)
		if err != nil {
			c.JSON(409, gin.H{"error": "Ride request is no longer available"})
			return
		}

		var ride models.Ride
		txErr := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.RideRequest{}).
				Where("id = ? AND status = ?", request.ID, models.RequestStatusPending).
				Update("status", next)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}

			ride = models.Ride{
				RequestID: request.ID,
				DriverID:  driverID,
				VehicleID: vehicle.ID,
				Status:    models.RideStatusWaiting,
			}
			return tx.Create(&ride).Error
		})
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				c.JSON(409, gin.H{"error": "Ride request was already taken"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to accept ride request"})
			return
		}

		// Mark the driver busy so discovery skips them
		db.Model(&models.DriverLocation{}).
			Where("driver_id = ?", driverID).
			Update("status", models.DriverStatusBusy)
		if err := services.SetDriverStatus(c.Request.Context(), driverID, models.DriverStatusBusy); err != nil {
			log.Printf("Failed to cache driver %d status: %v", driverID, err)
		}

		notification := models.NewNotification(
			request.RiderID,
			"Ride Accepted",
			"A driver accepted your ride request and is on the way.",
			models.NotificationTypeRideAccepted,
			models.RideStatusPayload{RequestID: request.ID, RideID: ride.ID, Status: ride.Status},
		)
		if err := db.Create(&notification).Error; err == nil {
			notifier.Notify(c.Request.Context(), notification)
		}

		hub.SendRideStatusUpdate(request.RiderID, services.RideStatusUpdate{
			RequestID: request.ID,
			RideID:    ride.ID,
			Status:    ride.Status,
			Message:   "Driver is on the way",
		})

		c.JSON(201, gin.H{
			"message":   "Ride request accepted",
			"rideId":    ride.ID,
			"requestId": request.ID,
			"status":    ride.Status,
		})
	}
}

// rideStep describes one progress endpoint: the ride transition to
// apply, which timestamp column it stamps, and the request status that
// mirrors it.
type rideStep struct {
	transition    string
	timestampCol  string
	requestStatus string
	message       string
}

var rideSteps = map[string]rideStep{
	lifecycle.RidePickup: {
		transition:   lifecycle.RidePickup,
		timestampCol: "pickup_time",
		message:      "Driver has picked you up",
	},
	lifecycle.RideStart: {
		transition:    lifecycle.RideStart,
		timestampCol:  "start_time",
		requestStatus: models.RequestStatusInProgress,
		message:       "Your trip has started",
	},
	lifecycle.RideComplete: {
		transition:    lifecycle.RideComplete,
		timestampCol:  "end_time",
		requestStatus: models.RequestStatusCompleted,
		message:       "Your trip is complete",
	},
}

// PickupRider marks the rider as picked up
func PickupRider(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return advanceRide(db, hub, notifier, lifecycle.RidePickup)
}

// StartRide marks the trip as underway
func StartRide(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return advanceRide(db, hub, notifier, lifecycle.RideStart)
}

// CompleteRide finishes the trip and settles the fare at the quoted estimate
func CompleteRide(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return advanceRide(db, hub, notifier, lifecycle.RideComplete)
}

// advanceRide applies a driver-initiated lifecycle transition to a ride,
// stamps the matching timestamp and mirrors the status onto the request.
func advanceRide(db *gorm.DB, hub *services.Hub, notifier *services.Notifier, transition string) gin.HandlerFunc {
	step := rideSteps[transition]

	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		rideID, err := strconv.ParseUint(c.Param("rideId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride ID"})
			return
		}

		var ride models.Ride
		if err := db.Preload("Request").First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if ride.DriverID != driverID {
			c.JSON(403, gin.H{"error": "Unauthorized to update this ride"})
			return
		}

		next, err := lifecycle.NextRideStatus(ride.Status, step.transition)
		if err != nil {
			var invalid *lifecycle.InvalidTransitionError
			if errors.As(err, &invalid) {
				c.JSON(409, gin.H{"error": invalid.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to update ride"})
			return
		}

		now := time.Now()
		updates := map[string]interface{}{"status": next, step.timestampCol: now}
		if step.transition == lifecycle.RideComplete && ride.Request != nil {
			// The fare settles at the quoted estimate
			updates["actual_fare"] = ride.Request.EstimatedFare
		}

		txErr := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Ride{}).
				Where("id = ? AND status = ?", ride.ID, ride.Status).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}

			if step.requestStatus != "" {
				if err := tx.Model(&models.RideRequest{}).
					Where("id = ?", ride.RequestID).
					Update("status", step.requestStatus).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				c.JSON(409, gin.H{"error": "Ride changed state, try again"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to update ride"})
			return
		}

		message := step.message
		if step.transition == lifecycle.RideComplete {
			finishRide(c, db, &ride)
			if ride.Request != nil {
				message = "Your trip is complete. Fare: " + utils.FormatCurrencyDisplay(ride.Request.EstimatedFare)
			}
		}

		if ride.Request != nil {
			notification := models.NewNotification(
				ride.Request.RiderID,
				"Ride Update",
				message,
				models.NotificationTypeRideStatus,
				models.RideStatusPayload{RequestID: ride.RequestID, RideID: ride.ID, Status: next},
			)
			if err := db.Create(&notification).Error; err == nil {
				notifier.Notify(c.Request.Context(), notification)
			}

			hub.SendRideStatusUpdate(ride.Request.RiderID, services.RideStatusUpdate{
				RequestID: ride.RequestID,
				RideID:    ride.ID,
				Status:    next,
				Message:   message,
			})
		}

		if err := services.PublishRideUpdate(c.Request.Context(), ride.ID, next, nil); err != nil {
			log.Printf("Failed to publish ride %d update: %v", ride.ID, err)
		}

		c.JSON(200, gin.H{"message": "Ride updated", "rideId": ride.ID, "status": next})
	}
}

// finishRide handles the bookkeeping once a ride completes: the driver goes
// back online and both parties' ride counts tick up.
func finishRide(c *gin.Context, db *gorm.DB, ride *models.Ride) {
	db.Model(&models.DriverLocation{}).
		Where("driver_id = ?", ride.DriverID).
		Update("status", models.DriverStatusOnline)
	if err := services.SetDriverStatus(c.Request.Context(), ride.DriverID, models.DriverStatusOnline); err != nil {
		log.Printf("Failed to cache driver %d status: %v", ride.DriverID, err)
	}

	db.Model(&models.User{}).Where("id = ?", ride.DriverID).
		Update("total_rides", gorm.Expr("total_rides + 1"))
	if ride.Request != nil {
		db.Model(&models.User{}).Where("id = ?", ride.Request.RiderID).
			Update("total_rides", gorm.Expr("total_rides + 1"))
	}
}

// CancelRideByDriver lets the driver abandon a ride before completion. The
// request reopens to pending when the trip never started, otherwise it is
// cancelled outright.
func CancelRideByDriver(db *gorm.DB, hub *services.Hub, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		rideID, err := strconv.ParseUint(c.Param("rideId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride ID"})
			return
		}

		var ride models.Ride
		if err := db.Preload("Request").First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if ride.DriverID != driverID {
			c.JSON(403, gin.H{"error": "Unauthorized to cancel this ride"})
			return
		}

		next, err := lifecycle.NextRideStatus(ride.Status, lifecycle.RideCancel)
		if err != nil {
			var invalid *lifecycle.InvalidTransitionError
			if errors.As(err, &invalid) {
				c.JSON(409, gin.H{"error": invalid.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to cancel ride"})
			return
		}

		requestStatus := models.RequestStatusCancelled
		if ride.Status == models.RideStatusWaiting {
			// Nothing happened yet; put the request back in the pool
			requestStatus = models.RequestStatusPending
		}

		txErr := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Ride{}).
				Where("id = ? AND status = ?", ride.ID, ride.Status).
				Update("status", next)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Model(&models.RideRequest{}).
				Where("id = ?", ride.RequestID).
				Update("status", requestStatus).Error
		})
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				c.JSON(409, gin.H{"error": "Ride changed state, try again"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to cancel ride"})
			return
		}

		db.Model(&models.DriverLocation{}).
			Where("driver_id = ?", driverID).
			Update("status", models.DriverStatusOnline)
		if err := services.SetDriverStatus(c.Request.Context(), driverID, models.DriverStatusOnline); err != nil {
			log.Printf("Failed to cache driver %d status: %v", driverID, err)
		}

		if ride.Request != nil {
			message := "The driver cancelled your ride."
			if requestStatus == models.RequestStatusPending {
				message = "The driver cancelled. Your request is back in the queue."
			}
			notification := models.NewNotification(
				ride.Request.RiderID,
				"Ride Cancelled",
				message,
				models.NotificationTypeRideStatus,
				models.RideStatusPayload{RequestID: ride.RequestID, RideID: ride.ID, Status: next},
			)
			if err := db.Create(&notification).Error; err == nil {
				notifier.Notify(c.Request.Context(), notification)
			}

			hub.SendRideStatusUpdate(ride.Request.RiderID, services.RideStatusUpdate{
				RequestID: ride.RequestID,
				RideID:    ride.ID,
				Status:    next,
				Message:   message,
			})
		}

		c.JSON(200, gin.H{
			"message":       "Ride cancelled",
			"rideId":        ride.ID,
			"status":        next,
			"requestStatus": requestStatus,
		})
	}
}

// GetRide returns a ride to its driver, its rider, or an admin
func GetRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		rideID, err := strconv.ParseUint(c.Param("rideId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride ID"})
			return
		}

		var ride models.Ride
		if err := db.Preload("Request").Preload("Driver").Preload("Vehicle").
			First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		authorized := userType == string(models.UserTypeAdmin) ||
			ride.DriverID == userID ||
			(ride.Request != nil && ride.Request.RiderID == userID)
		if !authorized {
			c.JSON(403, gin.H{"error": "Unauthorized to view this ride"})
			return
		}

		response := gin.H{
			"rideId":     ride.ID,
			"requestId":  ride.RequestID,
			"status":     ride.Status,
			"pickupTime": ride.PickupTime,
			"startTime":  ride.StartTime,
			"endTime":    ride.EndTime,
		}
		if ride.ActualFare > 0 {
			response["actualFare"] = ride.ActualFare
			// Settled fares show cents; quotes stay rounded
			response["formattedFare"] = utils.FormatCurrencyDetailed(ride.ActualFare)
		}
		if ride.Driver != nil {
			response["driver"] = gin.H{
				"id":       ride.Driver.ID,
				"username": ride.Driver.Username,
				"rating":   ride.Driver.Rating,
			}
		}
		if ride.Vehicle != nil {
			response["vehicle"] = gin.H{
				"class":        ride.Vehicle.VehicleClass,
				"make":         ride.Vehicle.Make,
				"model":        ride.Vehicle.ModelName,
				"licensePlate": ride.Vehicle.LicensePlate,
			}
		}
		if ride.Request != nil {
			response["pickup"] = gin.H{
				"lat":     ride.Request.PickupLat,
				"lng":     ride.Request.PickupLng,
				"address": ride.Request.PickupAddr,
			}
			response["destination"] = gin.H{
				"lat":     ride.Request.DestLat,
				"lng":     ride.Request.DestLng,
				"address": ride.Request.DestAddr,
			}
		}

		c.JSON(200, response)
	}
}

// GetDriverRideHistory lists the authenticated driver's rides, newest first
func GetDriverRideHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var rides []models.Ride
		if err := db.Preload("Request").
			Where("driver_id = ?", driverID).
			Order("created_at DESC").Limit(50).
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride history"})
			return
		}

		c.JSON(200, gin.H{"rides": rides, "count": len(rides)})
	}
}

type RateRideInput struct {
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
	Comment string  `json:"comment"`
}

// RateRide records a post-trip rating. Riders rate the driver and drivers
// rate the passenger; a driver rating feeds the average used in matching.
func RateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		rideID, err := strconv.ParseUint(c.Param("rideId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride ID"})
			return
		}

		var input RateRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		if err := db.Preload("Request").First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if ride.Status != models.RideStatusCompleted {
			c.JSON(400, gin.H{"error": "Only completed rides can be rated"})
			return
		}

		var column string
		var ratedUserID uint
		switch {
		case ride.Request != nil && ride.Request.RiderID == userID:
			if ride.DriverRating != nil {
				c.JSON(409, gin.H{"error": "You already rated this ride"})
				return
			}
			column = "driver_rating"
			ratedUserID = ride.DriverID
		case ride.DriverID == userID:
			if ride.PassengerRating != nil {
				c.JSON(409, gin.H{"error": "You already rated this ride"})
				return
			}
			column = "passenger_rating"
			if ride.Request != nil {
				ratedUserID = ride.Request.RiderID
			}
		default:
			c.JSON(403, gin.H{"error": "Unauthorized to rate this ride"})
			return
		}

		if err := db.Model(&models.Ride{}).Where("id = ?", ride.ID).
			Update(column, input.Rating).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save rating"})
			return
		}

		if ratedUserID != 0 {
			if err := recomputeUserRating(db, ratedUserID, column); err != nil {
				log.Printf("Failed to recompute rating for user %d: %v", ratedUserID, err)
			}
		}

		c.JSON(200, gin.H{"message": "Rating saved", "rideId": ride.ID, "rating": input.Rating})
	}
}

// recomputeUserRating refreshes a user's average rating from their rated rides
func recomputeUserRating(db *gorm.DB, userID uint, column string) error {
	var avg float64
	var query *gorm.DB
	if column == "driver_rating" {
		query = db.Model(&models.Ride{}).
			Select("COALESCE(AVG(driver_rating), 5.0)").
			Where("driver_id = ? AND driver_rating IS NOT NULL", userID)
	} else {
		query = db.Model(&models.Ride{}).
			Select("COALESCE(AVG(passenger_rating), 5.0)").
			Joins("JOIN ride_requests ON ride_requests.id = rides.request_id").
			Where("ride_requests.rider_id = ? AND passenger_rating IS NOT NULL", userID)
	}
	if err := query.Scan(&avg).Error; err != nil {
		return err
	}
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("rating", avg).Error
}
