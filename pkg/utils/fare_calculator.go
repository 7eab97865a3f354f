package utils

import (
	"math"
)

// Fare constants in KSh, by vehicle class.
const (
	CarBaseFare       = 10.0
	CarPerKmRate      = 2.5
	TwoWheelBaseFare  = 5.0
	TwoWheelPerKmRate = 1.5
)

// FareEstimate contains the calculated fare and its breakdown
type FareEstimate struct {
	TotalFare    float64 `json:"totalFare"`
	BaseFare     float64 `json:"baseFare"`
	DistanceFare float64 `json:"distanceFare"`
	PerKmRate    float64 `json:"perKmRate"`
	DistanceKm   float64 `json:"distanceKm"`
	ServiceClass string  `json:"serviceClass"`
}

// BaseFare returns the flag-fall fare for a vehicle class.
func BaseFare(serviceClass string) float64 {
	if serviceClass == "car" {
		return CarBaseFare
	}
	return TwoWheelBaseFare
}

// PerKmRate returns the per-kilometer rate for a vehicle class.
func PerKmRate(serviceClass string) float64 {
	if serviceClass == "car" {
		return CarPerKmRate
	}
	return TwoWheelPerKmRate
}

// EstimateFare calculates the fare for a trip between two points. The result
// is deterministic for identical inputs so retries re-quote the same price.
func EstimateFare(pickupLat, pickupLng, destLat, destLng float64, serviceClass string) FareEstimate {
	distance := HaversineDistance(pickupLat, pickupLng, destLat, destLng)

	base := BaseFare(serviceClass)
	rate := PerKmRate(serviceClass)
	distanceFare := distance * rate
	total := base + distanceFare

	return FareEstimate{
		TotalFare:    math.Round(total*100) / 100,
		BaseFare:     base,
		DistanceFare: math.Round(distanceFare*100) / 100,
		PerKmRate:    rate,
		DistanceKm:   math.Round(distance*100) / 100,
		ServiceClass: serviceClass,
	}
}
