package utils

import (
	"math"
)

// Average city speeds in km/h, by vehicle class. Two-wheelers cut through
// traffic and get the higher estimate.
const (
	CarSpeedKmh      = 20.0
	TwoWheelSpeedKmh = 25.0

	// PickupBufferMinutes is added to every ETA for pickup/dropoff overhead.
	PickupBufferMinutes = 3
	// MinimumETAMinutes is the floor for any ETA estimate.
	MinimumETAMinutes = 5
)

// HaversineDistance calculates the distance between two points on Earth
// using the Haversine formula. Returns distance in kilometers.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371 // Earth's radius in kilometers

	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlng := lng2Rad - lng1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// IsWithinRadius checks if a point is within a specified radius of another point
func IsWithinRadius(centerLat, centerLng, pointLat, pointLng, radiusKm float64) bool {
	distance := HaversineDistance(centerLat, centerLng, pointLat, pointLng)
	return distance <= radiusKm
}

// SpeedForClass returns the assumed average city speed for a vehicle class.
func SpeedForClass(serviceClass string) float64 {
	switch serviceClass {
	case "motorcycle", "bicycle":
		return TwoWheelSpeedKmh
	default:
		return CarSpeedKmh
	}
}

// EstimateETA estimates travel time in minutes between two points for the
// given vehicle class. Adds a fixed pickup/dropoff buffer and never returns
// less than MinimumETAMinutes.
func EstimateETA(fromLat, fromLng, toLat, toLng float64, serviceClass string) int {
	distance := HaversineDistance(fromLat, fromLng, toLat, toLng)
	speed := SpeedForClass(serviceClass)

	minutes := int(math.Ceil(distance / speed * 60))
	minutes += PickupBufferMinutes

	if minutes < MinimumETAMinutes {
		minutes = MinimumETAMinutes
	}
	return minutes
}

// Bearing calculates the initial bearing from point 1 to point 2
// Returns bearing in degrees (0-360)
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180
	lng1Rad := lng1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lng2Rad := lng2 * math.Pi / 180

	dlng := lng2Rad - lng1Rad

	y := math.Sin(dlng) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dlng)

	bearing := math.Atan2(y, x) * 180 / math.Pi

	// Normalize to 0-360 degrees
	if bearing < 0 {
		bearing += 360
	}

	return bearing
}
