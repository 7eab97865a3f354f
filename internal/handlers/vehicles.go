package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
)

type RegisterVehicleInput struct {
	VehicleClass string `json:"vehicleClass" binding:"required"`
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	LicensePlate string `json:"licensePlate" binding:"required"`
	Color        string `json:"color"`
	Year         int    `json:"year"`
}

// RegisterVehicle adds a vehicle to the driver's fleet
func RegisterVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input RegisterVehicleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if !models.IsValidVehicleClass(input.VehicleClass) {
			c.JSON(400, gin.H{"error": "Invalid vehicle class"})
			return
		}

		vehicle := models.Vehicle{
			DriverID:     driverID,
			VehicleClass: input.VehicleClass,
			Make:         input.Make,
			ModelName:    input.Model,
			LicensePlate: input.LicensePlate,
			Color:        input.Color,
			Year:         input.Year,
			IsActive:     true,
		}

		if err := db.Create(&vehicle).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to register vehicle"})
			return
		}

		c.JSON(201, gin.H{"message": "Vehicle registered successfully", "vehicle": vehicle})
	}
}

// GetMyVehicles lists the driver's vehicles, active first
func GetMyVehicles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var vehicles []models.Vehicle
		if err := db.Where("driver_id = ?", driverID).
			Order("is_active DESC, created_at DESC").
			Find(&vehicles).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch vehicles"})
			return
		}

		c.JSON(200, gin.H{"vehicles": vehicles, "count": len(vehicles)})
	}
}

type UpdateVehicleInput struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"licensePlate"`
	Color        string `json:"color"`
	Year         int    `json:"year"`
	IsActive     *bool  `json:"isActive"`
}

// UpdateVehicle edits a vehicle owned by the authenticated driver. Flipping
// isActive is how a vehicle enters or leaves the matchable fleet.
func UpdateVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		vehicleID, err := strconv.ParseUint(c.Param("vehicleId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid vehicle ID"})
			return
		}

		var input UpdateVehicleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var vehicle models.Vehicle
		if err := db.First(&vehicle, vehicleID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Vehicle not found"})
			return
		}
		if vehicle.DriverID != driverID {
			c.JSON(403, gin.H{"error": "Unauthorized to update this vehicle"})
			return
		}

		if input.Make != "" {
			vehicle.Make = input.Make
		}
		if input.Model != "" {
			vehicle.ModelName = input.Model
		}
		if input.LicensePlate != "" {
			vehicle.LicensePlate = input.LicensePlate
		}
		if input.Color != "" {
			vehicle.Color = input.Color
		}
		if input.Year != 0 {
			vehicle.Year = input.Year
		}
		if input.IsActive != nil {
			vehicle.IsActive = *input.IsActive
		}

		if err := db.Save(&vehicle).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update vehicle"})
			return
		}

		c.JSON(200, gin.H{"message": "Vehicle updated successfully", "vehicle": vehicle})
	}
}

// RemoveVehicle soft-deletes a vehicle owned by the authenticated driver
func RemoveVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		vehicleID, err := strconv.ParseUint(c.Param("vehicleId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid vehicle ID"})
			return
		}

		var vehicle models.Vehicle
		if err := db.First(&vehicle, vehicleID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Vehicle not found"})
			return
		}
		if vehicle.DriverID != driverID {
			c.JSON(403, gin.H{"error": "Unauthorized to remove this vehicle"})
			return
		}

		if err := db.Delete(&vehicle).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove vehicle"})
			return
		}

		c.JSON(200, gin.H{"message": "Vehicle removed successfully"})
	}
}
