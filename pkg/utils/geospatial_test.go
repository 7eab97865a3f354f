package utils

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{
			name: "same point is zero",
			lat1: -1.2921, lng1: 36.8219,
			lat2: -1.2921, lng2: 36.8219,
			wantKm: 0, tolerance: 0.0001,
		},
		{
			name: "nairobi cbd to westlands",
			lat1: -1.2921, lng1: 36.8219,
			lat2: -1.2672, lng2: 36.8121,
			wantKm: 2.98, tolerance: 0.1,
		},
		{
			name: "nairobi to mombasa",
			lat1: -1.2921, lng1: 36.8219,
			lat2: -4.0435, lng2: 39.6682,
			wantKm: 440, tolerance: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineDistance() = %v, want %v (±%v)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineDistanceSymmetry(t *testing.T) {
	forward := HaversineDistance(-1.2921, 36.8219, -1.3032, 36.8473)
	backward := HaversineDistance(-1.3032, 36.8473, -1.2921, 36.8219)
	if math.Abs(forward-backward) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", forward, backward)
	}
}

func TestSpeedForClass(t *testing.T) {
	tests := []struct {
		class string
		want  float64
	}{
		{"car", CarSpeedKmh},
		{"motorcycle", TwoWheelSpeedKmh},
		{"bicycle", TwoWheelSpeedKmh},
		{"unknown", CarSpeedKmh},
	}

	for _, tt := range tests {
		if got := SpeedForClass(tt.class); got != tt.want {
			t.Errorf("SpeedForClass(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestEstimateETA(t *testing.T) {
	tests := []struct {
		name         string
		fromLat      float64
		fromLng      float64
		toLat        float64
		toLng        float64
		serviceClass string
		want         int
	}{
		{
			// travel time rounds to zero, buffer alone is under the floor
			name:    "zero distance hits the minimum",
			fromLat: -1.2921, fromLng: 36.8219,
			toLat: -1.2921, toLng: 36.8219,
			serviceClass: "car",
			want:         MinimumETAMinutes,
		},
		{
			// ~9.5km at 20km/h rounds up to 29min travel + 3min buffer
			name:    "cross town by car",
			fromLat: -1.2921, fromLng: 36.8219,
			toLat: -1.2921, toLng: 36.9072,
			serviceClass: "car",
			want:         32,
		},
		{
			// same trip at 25km/h rounds up to 23min travel + 3min buffer
			name:    "cross town by motorcycle",
			fromLat: -1.2921, fromLng: 36.8219,
			toLat: -1.2921, toLng: 36.9072,
			serviceClass: "motorcycle",
			want:         26,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateETA(tt.fromLat, tt.fromLng, tt.toLat, tt.toLng, tt.serviceClass)
			if got != tt.want {
				t.Errorf("EstimateETA() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateETANeverBelowFloor(t *testing.T) {
	for _, class := range []string{"car", "motorcycle", "bicycle"} {
		got := EstimateETA(0, 0, 0, 0.001, class)
		if got < MinimumETAMinutes {
			t.Errorf("EstimateETA for %s = %v, below floor %v", class, got, MinimumETAMinutes)
		}
	}
}

func TestIsWithinRadius(t *testing.T) {
	// Westlands is about 3km from the CBD
	if !IsWithinRadius(-1.2921, 36.8219, -1.2672, 36.8121, 5) {
		t.Error("expected point within 5km radius")
	}
	if IsWithinRadius(-1.2921, 36.8219, -1.2672, 36.8121, 1) {
		t.Error("expected point outside 1km radius")
	}
}

func TestBearing(t *testing.T) {
	// Due east along the equator
	got := Bearing(0, 36.8, 0, 36.9)
	if math.Abs(got-90) > 0.5 {
		t.Errorf("Bearing() = %v, want ~90", got)
	}

	// Result is always normalized to [0, 360)
	got = Bearing(-1.2921, 36.8219, -1.2672, 36.8121)
	if got < 0 || got >= 360 {
		t.Errorf("Bearing() = %v, outside [0, 360)", got)
	}
}
