package matching

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/quickride/quickride-backend/internal/models"
)

// GormStore implements Store on the application database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LocationsSince(ctx context.Context, since time.Time) ([]models.DriverLocation, error) {
	var locations []models.DriverLocation
	err := s.db.WithContext(ctx).
		Preload("Driver").
		Where("captured_at >= ?", since).
		Order("captured_at DESC").
		Find(&locations).Error
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *GormStore) ActiveVehicles(ctx context.Context, driverID uint, vehicleClass string) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.WithContext(ctx).
		Where("driver_id = ? AND vehicle_class = ? AND is_active = ?", driverID, vehicleClass, true).
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (s *GormStore) GetRideRequest(ctx context.Context, id uint) (*models.RideRequest, error) {
	var request models.RideRequest
	if err := s.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *GormStore) UpdateRequestNotes(ctx context.Context, id uint, notes string) error {
	return s.db.WithContext(ctx).
		Model(&models.RideRequest{}).
		Where("id = ?", id).
		Update("notes", notes).Error
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
