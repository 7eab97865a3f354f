package models

import (
	"gorm.io/gorm"
)

// Vehicle class constants. Pricing and matching both key on the class.
const (
	VehicleClassCar        = "car"
	VehicleClassMotorcycle = "motorcycle"
	VehicleClassBicycle    = "bicycle"
)

// Vehicle represents a driver's registered conveyance
type Vehicle struct {
	gorm.Model
	DriverID     uint   `json:"driverId" gorm:"not null;index"`
	VehicleClass string `json:"vehicleClass" gorm:"column:vehicle_class;not null"`
	Make         string `json:"make" gorm:"not null"`
	ModelName    string `json:"model" gorm:"column:model;not null"`
	LicensePlate string `json:"licensePlate" gorm:"column:license_plate;not null"`
	Color        string `json:"color,omitempty"`
	Year         int    `json:"year,omitempty"`
	IsActive     bool   `json:"isActive" gorm:"not null;default:true"`
	Driver       *User  `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (Vehicle) TableName() string {
	return "vehicles"
}

// IsValidVehicleClass reports whether the class is one we register and match on.
func IsValidVehicleClass(class string) bool {
	switch class {
	case VehicleClassCar, VehicleClassMotorcycle, VehicleClassBicycle:
		return true
	}
	return false
}
