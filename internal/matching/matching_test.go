package matching

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
)

// fakeStore is an in-memory Store for exercising the matcher without a
// database.
type fakeStore struct {
	locations     []models.DriverLocation
	vehicles      map[uint][]models.Vehicle
	requests      map[uint]*models.RideRequest
	notifications []models.Notification
	notes         map[uint]string
	locationsErr  error
	requestErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vehicles: make(map[uint][]models.Vehicle),
		requests: make(map[uint]*models.RideRequest),
		notes:    make(map[uint]string),
	}
}

func (s *fakeStore) LocationsSince(_ context.Context, since time.Time) ([]models.DriverLocation, error) {
	if s.locationsErr != nil {
		return nil, s.locationsErr
	}
	var fresh []models.DriverLocation
	for _, loc := range s.locations {
		if !loc.CapturedAt.Before(since) {
			fresh = append(fresh, loc)
		}
	}
	return fresh, nil
}

func (s *fakeStore) ActiveVehicles(_ context.Context, driverID uint, vehicleClass string) ([]models.Vehicle, error) {
	var matched []models.Vehicle
	for _, v := range s.vehicles[driverID] {
		if v.VehicleClass == vehicleClass && v.IsActive {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

func (s *fakeStore) GetRideRequest(_ context.Context, id uint) (*models.RideRequest, error) {
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	request, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return request, nil
}

func (s *fakeStore) UpdateRequestNotes(_ context.Context, id uint, notes string) error {
	s.notes[id] = notes
	return nil
}

func (s *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.notifications = append(s.notifications, *n)
	return nil
}

type fakeNotifier struct {
	delivered []models.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification models.Notification) {
	n.delivered = append(n.delivered, notification)
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, notifier Notifier) *Service {
	svc := NewService(store, notifier, DefaultConfig())
	svc.Now = func() time.Time { return testNow }
	return svc
}

func driverAt(driverID uint, lat, lng float64, age time.Duration, rating float64) models.DriverLocation {
	return models.DriverLocation{
		DriverID:   driverID,
		Latitude:   lat,
		Longitude:  lng,
		Status:     models.DriverStatusOnline,
		CapturedAt: testNow.Add(-age),
		Driver:     &models.User{Model: gorm.Model{ID: driverID}, Rating: rating},
	}
}

func carFor(driverID uint) models.Vehicle {
	return models.Vehicle{DriverID: driverID, VehicleClass: models.VehicleClassCar, IsActive: true}
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	store := newFakeStore()
	// Nairobi CBD pickup; 0.01 degrees of longitude is roughly 1.1km
	store.locations = []models.DriverLocation{
		driverAt(1, -1.2921, 36.8419, 2*time.Minute, 5.0),  // ~2.2km
		driverAt(2, -1.2921, 36.8319, 2*time.Minute, 5.0),  // ~1.1km
		driverAt(3, -1.2921, 36.8219, 15*time.Minute, 5.0), // stale, excluded by the store query window
		driverAt(4, -1.2921, 36.8319, 2*time.Minute, 5.0),  // no car, excluded
		driverAt(5, -1.2921, 37.0219, 2*time.Minute, 5.0),  // ~22km, outside radius
	}
	store.vehicles[1] = []models.Vehicle{carFor(1)}
	store.vehicles[2] = []models.Vehicle{carFor(2)}
	store.vehicles[3] = []models.Vehicle{carFor(3)}
	store.vehicles[4] = []models.Vehicle{{DriverID: 4, VehicleClass: models.VehicleClassMotorcycle, IsActive: true}}
	store.vehicles[5] = []models.Vehicle{carFor(5)}

	svc := newTestService(store, nil)
	candidates, err := svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassCar, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("Discover() returned %d candidates, want 2", len(candidates))
	}
	if candidates[0].Location.DriverID != 2 || candidates[1].Location.DriverID != 1 {
		t.Errorf("candidates not sorted by distance: got drivers %d, %d",
			candidates[0].Location.DriverID, candidates[1].Location.DriverID)
	}
	if candidates[0].DistanceKm >= candidates[1].DistanceKm {
		t.Errorf("distances not ascending: %v >= %v", candidates[0].DistanceKm, candidates[1].DistanceKm)
	}
}

func TestDiscoverInactiveVehicleDoesNotCount(t *testing.T) {
	store := newFakeStore()
	store.locations = []models.DriverLocation{
		driverAt(1, -1.2921, 36.8319, time.Minute, 5.0),
	}
	inactive := carFor(1)
	inactive.IsActive = false
	store.vehicles[1] = []models.Vehicle{inactive}

	svc := newTestService(store, nil)
	candidates, err := svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassCar, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("driver with only an inactive vehicle should not be a candidate, got %d", len(candidates))
	}
}

func TestDiscoverMotorcycleServesNonCarClasses(t *testing.T) {
	store := newFakeStore()
	store.locations = []models.DriverLocation{
		driverAt(1, -1.2921, 36.8319, time.Minute, 5.0),
	}
	store.vehicles[1] = []models.Vehicle{{DriverID: 1, VehicleClass: models.VehicleClassMotorcycle, IsActive: true}}

	svc := newTestService(store, nil)

	// A bicycle request is served by motorcycle drivers
	candidates, err := svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassBicycle, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("motorcycle driver should serve bicycle requests, got %d candidates", len(candidates))
	}

	// But not car requests
	candidates, err = svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassCar, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("motorcycle driver should not serve car requests, got %d candidates", len(candidates))
	}
}

func TestDiscoverSkipsBusyAndOfflineDrivers(t *testing.T) {
	store := newFakeStore()
	busy := driverAt(1, -1.2921, 36.8319, time.Minute, 5.0)
	busy.Status = models.DriverStatusBusy
	offline := driverAt(2, -1.2921, 36.8319, time.Minute, 5.0)
	offline.Status = models.DriverStatusOffline
	online := driverAt(3, -1.2921, 36.8319, time.Minute, 5.0)
	store.locations = []models.DriverLocation{busy, offline, online}
	store.vehicles[1] = []models.Vehicle{carFor(1)}
	store.vehicles[2] = []models.Vehicle{carFor(2)}
	store.vehicles[3] = []models.Vehicle{carFor(3)}

	svc := newTestService(store, nil)
	candidates, err := svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassCar, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want only the online driver", len(candidates))
	}
	if candidates[0].Location.DriverID != 3 {
		t.Errorf("discovered driver %d, want online driver 3", candidates[0].Location.DriverID)
	}
}

func TestSelectBestEmpty(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	if best := svc.SelectBest(nil); best != nil {
		t.Errorf("SelectBest(nil) = %+v, want nil", best)
	}
	if best := svc.SelectBest([]Candidate{}); best != nil {
		t.Errorf("SelectBest(empty) = %+v, want nil", best)
	}
}

func TestSelectBestPrefersCloser(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	candidates := []Candidate{
		{Location: driverAt(1, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 3.0},
		{Location: driverAt(2, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 1.0},
	}

	best := svc.SelectBest(candidates)
	if best == nil || best.Location.DriverID != 2 {
		t.Fatalf("SelectBest() picked %+v, want driver 2", best)
	}
}

func TestSelectBestPrefersHigherRating(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	candidates := []Candidate{
		{Location: driverAt(1, 0, 0, time.Minute, 4.0), Rating: 4.0, FleetSize: 1, DistanceKm: 2.0},
		{Location: driverAt(2, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
	}

	best := svc.SelectBest(candidates)
	if best == nil || best.Location.DriverID != 2 {
		t.Fatalf("SelectBest() picked %+v, want higher-rated driver 2", best)
	}
}

func TestSelectBestPenalizesStaleSamples(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	candidates := []Candidate{
		{Location: driverAt(1, 0, 0, 6*time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
		{Location: driverAt(2, 0, 0, 4*time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
	}

	best := svc.SelectBest(candidates)
	if best == nil || best.Location.DriverID != 2 {
		t.Fatalf("SelectBest() picked %+v, want fresher driver 2", best)
	}
}

func TestSelectBestRewardsFleetSize(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	candidates := []Candidate{
		{Location: driverAt(1, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
		{Location: driverAt(2, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 2, DistanceKm: 2.0},
	}

	best := svc.SelectBest(candidates)
	if best == nil || best.Location.DriverID != 2 {
		t.Fatalf("SelectBest() picked %+v, want multi-vehicle driver 2", best)
	}
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	candidates := []Candidate{
		{Location: driverAt(7, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
		{Location: driverAt(8, 0, 0, time.Minute, 5.0), Rating: 5.0, FleetSize: 1, DistanceKm: 2.0},
	}

	best := svc.SelectBest(candidates)
	if best == nil || best.Location.DriverID != 7 {
		t.Fatalf("SelectBest() picked %+v, want first-seen driver 7 on tie", best)
	}
}

func TestAutoMatchUnknownRequest(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	result, err := svc.AutoMatch(context.Background(), 99)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("AutoMatch() error = %v, want ErrRequestNotFound", err)
	}
	if result.Matched {
		t.Error("AutoMatch() reported a match for an unknown request")
	}
}

func TestAutoMatchNotifiesWinner(t *testing.T) {
	store := newFakeStore()
	store.requests[1] = &models.RideRequest{
		Model:         gorm.Model{ID: 1},
		RiderID:       10,
		PickupLat:     -1.2921,
		PickupLng:     36.8219,
		PickupAddr:    "Kencom House",
		DestAddr:      "Westgate Mall",
		ServiceClass:  models.VehicleClassCar,
		EstimatedFare: 35.0,
		Status:        models.RequestStatusPending,
	}
	store.locations = []models.DriverLocation{
		driverAt(1, -1.2921, 36.8419, 2*time.Minute, 4.5),
		driverAt(2, -1.2921, 36.8319, 2*time.Minute, 5.0), // closer and better rated
	}
	store.vehicles[1] = []models.Vehicle{carFor(1)}
	store.vehicles[2] = []models.Vehicle{carFor(2)}

	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	result, err := svc.AutoMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("AutoMatch() error: %v", err)
	}
	if !result.Matched {
		t.Fatalf("AutoMatch() = %+v, want a match", result)
	}
	if result.DriverID != 2 {
		t.Errorf("matched driver = %d, want 2", result.DriverID)
	}
	if result.EtaMinutes < 5 {
		t.Errorf("EtaMinutes = %d, below the floor", result.EtaMinutes)
	}

	if len(store.notifications) != 1 {
		t.Fatalf("persisted %d notifications, want 1", len(store.notifications))
	}
	notification := store.notifications[0]
	if notification.UserID != 2 {
		t.Errorf("notification addressed to %d, want driver 2", notification.UserID)
	}
	if notification.Title != "New Ride Request" {
		t.Errorf("notification title = %q", notification.Title)
	}
	if notification.Type != models.NotificationTypeRideRequest {
		t.Errorf("notification type = %q", notification.Type)
	}
	if len(notifier.delivered) != 1 {
		t.Errorf("delivered %d live notifications, want 1", len(notifier.delivered))
	}

	notes := store.notes[1]
	if !strings.HasPrefix(notes, "Matched with driver (") || !strings.Contains(notes, "ETA:") {
		t.Errorf("request notes = %q", notes)
	}
}

func TestAutoMatchNoDriversNotifiesRider(t *testing.T) {
	store := newFakeStore()
	store.requests[1] = &models.RideRequest{
		Model:        gorm.Model{ID: 1},
		RiderID:      10,
		PickupLat:    -1.2921,
		PickupLng:    36.8219,
		ServiceClass: models.VehicleClassCar,
		Status:       models.RequestStatusPending,
	}

	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	result, err := svc.AutoMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("AutoMatch() error: %v", err)
	}
	if result.Matched {
		t.Fatal("AutoMatch() matched with no drivers")
	}
	if result.Reason != "no drivers available" {
		t.Errorf("Reason = %q, want %q", result.Reason, "no drivers available")
	}

	if len(store.notifications) != 1 {
		t.Fatalf("persisted %d notifications, want 1", len(store.notifications))
	}
	notification := store.notifications[0]
	if notification.UserID != 10 {
		t.Errorf("notification addressed to %d, want rider 10", notification.UserID)
	}
	if notification.Title != "No Drivers Available" {
		t.Errorf("notification title = %q", notification.Title)
	}
	if notification.Type != models.NotificationTypeAlert {
		t.Errorf("notification type = %q", notification.Type)
	}
}

func TestAutoMatchSurvivesRequestLookupFailure(t *testing.T) {
	store := newFakeStore()
	store.requestErr = errors.New("connection refused")

	svc := newTestService(store, nil)

	result, err := svc.AutoMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("AutoMatch() error = %v, storage failures must not surface as not-found", err)
	}
	if result.Matched {
		t.Error("AutoMatch() matched despite a storage failure")
	}
	if result.Reason != "matching failed" {
		t.Errorf("Reason = %q, want %q", result.Reason, "matching failed")
	}
}

func TestAutoMatchSurvivesDiscoveryFailure(t *testing.T) {
	store := newFakeStore()
	store.requests[1] = &models.RideRequest{
		Model:        gorm.Model{ID: 1},
		RiderID:      10,
		ServiceClass: models.VehicleClassCar,
		Status:       models.RequestStatusPending,
	}
	store.locationsErr = errors.New("connection refused")

	svc := newTestService(store, nil)

	result, err := svc.AutoMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("AutoMatch() error = %v, discovery failures should not surface", err)
	}
	if result.Matched {
		t.Error("AutoMatch() matched despite a discovery failure")
	}
	if result.Reason != "matching failed" {
		t.Errorf("Reason = %q, want %q", result.Reason, "matching failed")
	}
}

func TestDiscoverFreshnessWindowBoundary(t *testing.T) {
	store := newFakeStore()
	store.locations = []models.DriverLocation{
		driverAt(1, -1.2921, 36.8319, 10*time.Minute, 5.0), // exactly at the window edge
		driverAt(2, -1.2921, 36.8319, 10*time.Minute+time.Second, 5.0),
	}
	store.vehicles[1] = []models.Vehicle{carFor(1)}
	store.vehicles[2] = []models.Vehicle{carFor(2)}

	svc := newTestService(store, nil)
	candidates, err := svc.Discover(context.Background(), -1.2921, 36.8219, models.VehicleClassCar, 0)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 (boundary sample included, older excluded)", len(candidates))
	}
	if candidates[0].Location.DriverID != 1 {
		t.Errorf("kept driver %d, want 1", candidates[0].Location.DriverID)
	}
}
