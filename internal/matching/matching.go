// Package matching implements driver discovery, scoring and ride-request
// matching. A matching attempt is synchronous: discover fresh drivers around
// the pickup point, score them, notify the winner (or the requester when
// nobody qualifies).
package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/pkg/utils"
)

// ErrRequestNotFound is returned by AutoMatch when the ride request does not exist.
var ErrRequestNotFound = errors.New("ride request not found")

// Scoring weights. Lower total score is better.
const (
	distanceWeight  = 0.30
	ratingWeight    = 0.25
	freshnessWeight = 0.20
	// stalenessPenalty is added flat once a sample is older than the cutoff.
	stalenessPenalty = 0.15
	// fleetBonus is subtracted when a driver has more than one active
	// vehicle of the requested class.
	fleetBonus = 0.10
)

// Store is the persistence surface the matcher needs. Implemented by
// GormStore in production and by in-memory fakes in tests.
type Store interface {
	// LocationsSince returns driver location samples captured at or after
	// the given time, most recent first, with the driver profile attached.
	LocationsSince(ctx context.Context, since time.Time) ([]models.DriverLocation, error)
	// ActiveVehicles returns the driver's active vehicles of the given class.
	ActiveVehicles(ctx context.Context, driverID uint, vehicleClass string) ([]models.Vehicle, error)
	// GetRideRequest returns the request, or an error satisfying
	// errors.Is(err, gorm.ErrRecordNotFound) when it does not exist.
	GetRideRequest(ctx context.Context, id uint) (*models.RideRequest, error)
	UpdateRequestNotes(ctx context.Context, id uint, notes string) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier fans a persisted notification out to live channels (push, websocket).
// Delivery is best-effort; matching does not depend on it.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Candidate is a scored driver for a specific request. Built fresh per
// matching attempt and discarded after the winner is selected.
type Candidate struct {
	Location   models.DriverLocation
	Rating     float64
	FleetSize  int // active vehicles of the requested class
	DistanceKm float64
	Score      float64
}

// Result is the outcome of an AutoMatch call.
type Result struct {
	Matched    bool    `json:"matched"`
	Reason     string  `json:"reason,omitempty"`
	DriverID   uint    `json:"driverId,omitempty"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
	EtaMinutes int     `json:"etaMinutes,omitempty"`
}

// Service runs the matching pipeline. Now is injectable so tests can pin
// sample ages; it defaults to time.Now.
type Service struct {
	Store    Store
	Notifier Notifier
	Config   Config
	Now      func() time.Time
}

func NewService(store Store, notifier Notifier, cfg Config) *Service {
	return &Service{Store: store, Notifier: notifier, Config: cfg}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// vehicleClassFor maps a requested service class to the vehicle class we
// match against: car requests need cars, everything else a motorcycle.
func vehicleClassFor(serviceClass string) string {
	if serviceClass == models.VehicleClassCar {
		return models.VehicleClassCar
	}
	return models.VehicleClassMotorcycle
}

// Discover finds drivers eligible for a pickup point and service class:
// fresh location sample, currently online, at least one active vehicle of
// the class, within the radius. Busy and offline drivers are skipped even
// when their sample is fresh. The result is sorted ascending by distance.
// Read-only; on a storage error it returns an empty list and the error.
func (s *Service) Discover(ctx context.Context, pickupLat, pickupLng float64, serviceClass string, radiusKm float64) ([]Candidate, error) {
	if radiusKm <= 0 {
		radiusKm = s.Config.DiscoveryRadiusKm
	}

	since := s.now().Add(-s.Config.FreshnessWindow)
	locations, err := s.Store.LocationsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	wantClass := vehicleClassFor(serviceClass)
	candidates := make([]Candidate, 0, len(locations))
	for _, loc := range locations {
		if loc.Status != models.DriverStatusOnline {
			continue
		}
		vehicles, err := s.Store.ActiveVehicles(ctx, loc.DriverID, wantClass)
		if err != nil {
			return nil, err
		}
		if len(vehicles) == 0 {
			continue
		}

		distance := utils.HaversineDistance(pickupLat, pickupLng, loc.Latitude, loc.Longitude)
		if distance > radiusKm {
			continue
		}

		rating := 5.0
		if loc.Driver != nil {
			rating = loc.Driver.Rating
		}

		candidates = append(candidates, Candidate{
			Location:   loc,
			Rating:     rating,
			FleetSize:  len(vehicles),
			DistanceKm: distance,
		})
	}

	// insertion sort keeps the ordering stable for equal distances
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].DistanceKm < candidates[j-1].DistanceKm; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	return candidates, nil
}

// score computes the composite score for a candidate at the given instant.
// Lower is better.
func (s *Service) score(c Candidate, now time.Time) float64 {
	ageMinutes := c.Location.Age(now).Minutes()

	score := c.DistanceKm * distanceWeight
	score += (5.0 - c.Rating) * ratingWeight
	score += (ageMinutes / s.Config.FreshnessWindow.Minutes()) * freshnessWeight
	if c.Location.Age(now) > s.Config.StalenessCutoff {
		score += stalenessPenalty
	}
	if c.FleetSize > 1 {
		score -= fleetBonus
	}
	return score
}

// SelectBest scores the candidates and returns the one with the minimum
// score, or nil when the list is empty. Ties keep the first-seen candidate.
// Pure given its inputs and the service clock.
func (s *Service) SelectBest(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	now := s.now()
	best := candidates[0]
	best.Score = s.score(best, now)
	for _, c := range candidates[1:] {
		c.Score = s.score(c, now)
		if c.Score < best.Score {
			best = c
		}
	}
	return &best
}

// AutoMatch loads a ride request, finds the best available driver and hands
// the match off as a notification. When no driver qualifies the requester is
// notified instead. ErrRequestNotFound is returned only when the request
// does not exist; storage failures anywhere in the pipeline are logged and
// reported as an unmatched result, so the rider can retry.
func (s *Service) AutoMatch(ctx context.Context, requestID uint) (Result, error) {
	request, err := s.Store.GetRideRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{Matched: false, Reason: "matching failed"}, ErrRequestNotFound
		}
		log.Printf("matching: load request %d failed: %v", requestID, err)
		return Result{Matched: false, Reason: "matching failed"}, nil
	}

	candidates, err := s.Discover(ctx, request.PickupLat, request.PickupLng, request.ServiceClass, s.Config.DiscoveryRadiusKm)
	if err != nil {
		log.Printf("matching: discovery failed for request %d: %v", requestID, err)
		return Result{Matched: false, Reason: "matching failed"}, nil
	}

	best := s.SelectBest(candidates)
	if best == nil {
		s.notifyNoDrivers(ctx, request)
		return Result{Matched: false, Reason: "no drivers available"}, nil
	}

	eta := utils.EstimateETA(
		best.Location.Latitude, best.Location.Longitude,
		request.PickupLat, request.PickupLng,
		request.ServiceClass,
	)

	notification := models.NewNotification(
		best.Location.DriverID,
		"New Ride Request",
		fmt.Sprintf("New %s ride request from %s", request.ServiceClass, request.PickupAddr),
		models.NotificationTypeRideRequest,
		models.RideRequestPayload{
			RequestID:          request.ID,
			PickupAddress:      request.PickupAddr,
			DestinationAddress: request.DestAddr,
			EstimatedFare:      request.EstimatedFare,
			ServiceClass:       request.ServiceClass,
			DistanceKm:         best.DistanceKm,
			EtaMinutes:         eta,
		},
	)
	if err := s.Store.CreateNotification(ctx, &notification); err != nil {
		log.Printf("matching: notify driver %d failed for request %d: %v", best.Location.DriverID, requestID, err)
		return Result{Matched: false, Reason: "matching failed"}, nil
	}
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notification)
	}

	notes := fmt.Sprintf("Matched with driver (%.1fkm away, ETA: %dmin)", best.DistanceKm, eta)
	if err := s.Store.UpdateRequestNotes(ctx, request.ID, notes); err != nil {
		// The driver has already been notified; a lost annotation is not
		// worth failing the match over.
		log.Printf("matching: annotate request %d failed: %v", request.ID, err)
	}

	return Result{
		Matched:    true,
		DriverID:   best.Location.DriverID,
		DistanceKm: best.DistanceKm,
		EtaMinutes: eta,
	}, nil
}

func (s *Service) notifyNoDrivers(ctx context.Context, request *models.RideRequest) {
	notification := models.NewNotification(
		request.RiderID,
		"No Drivers Available",
		"No drivers are currently available in your area. We'll keep looking!",
		models.NotificationTypeAlert,
		models.AlertPayload{RequestID: request.ID, Reason: "no drivers available"},
	)
	if err := s.Store.CreateNotification(ctx, &notification); err != nil {
		log.Printf("matching: notify requester %d failed for request %d: %v", request.RiderID, request.ID, err)
		return
	}
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notification)
	}
}
