package services

import (
	"errors"

	"birdhouse-viewer/be/models"

	"gorm.io/gorm"
)

// AccessService answers who may see or manage a device. Every handler that
// takes a device id must go through it before touching device-scoped data;
// there is no enforcement layer above this.
type AccessService struct {
	db *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// IsOwner reports whether userID registered the device. Owner rights gate the
// destructive operations: delete device, share, unshare.
func (s *AccessService) IsOwner(userID, deviceID uint) (bool, error) {
	var device models.Device
	if err := s.db.First(&device, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return device.OwnerID == userID, nil
}

// CanAccess reports whether userID is the device's owner or holds a viewer
// share for it. No other path grants access.
func (s *AccessService) CanAccess(userID, deviceID uint) (bool, error) {
	var device models.Device
	if err := s.db.First(&device, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	if device.OwnerID == userID {
		return true, nil
	}

	var count int64
	if err := s.db.Model(&models.DeviceShare{}).
		Where("device_id = ? AND user_id = ?", deviceID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
