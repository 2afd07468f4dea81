package services

import (
	"errors"
	"time"

	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"

	"gorm.io/gorm"
)

type SharingService struct {
	db     *gorm.DB
	access *AccessService
}

func NewSharingService(db *gorm.DB, access *AccessService) *SharingService {
	return &SharingService{db: db, access: access}
}

// ShareInfo is one entry of ListShares: who the device is shared with.
type ShareInfo struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
}

// Share grants viewer access on a device to the user behind granteeEmail.
// Only the owner may share; the grantee must already have an account (there
// is no invite-by-email side channel); self-shares and duplicates conflict.
func (s *SharingService) Share(deviceID, granterID uint, granteeEmail string) (*models.DeviceShare, error) {
	isOwner, err := s.access.IsOwner(granterID, deviceID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, ErrForbidden
	}

	var grantee models.User
	if err := s.db.Where("email = ?", granteeEmail).First(&grantee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if grantee.ID == granterID {
		return nil, ErrConflict
	}

	var count int64
	if err := s.db.Model(&models.DeviceShare{}).
		Where("device_id = ? AND user_id = ?", deviceID, grantee.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}

	share := models.DeviceShare{
		DeviceID: deviceID,
		UserID:   grantee.ID,
		Role:     models.RoleViewer,
	}
	if err := s.db.Create(&share).Error; err != nil {
		return nil, err
	}

	logs.Logger.Infof("Device %d shared with user %d", deviceID, grantee.ID)
	return &share, nil
}

// Unshare revokes the grantee's viewer access. Revoking a grant that does not
// exist is a no-op, not an error.
func (s *SharingService) Unshare(deviceID, callerID, granteeID uint) error {
	isOwner, err := s.access.IsOwner(callerID, deviceID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrForbidden
	}

	return s.db.
		Where("device_id = ? AND user_id = ?", deviceID, granteeID).
		Delete(&models.DeviceShare{}).Error
}

// ListShares returns every viewer grant on the device. Owner only; the
// owner's own implicit relationship is not listed. As a read path it
// degrades to an empty list when the store is unavailable; missing-device
// and not-owner outcomes still surface.
func (s *SharingService) ListShares(deviceID, callerID uint) ([]ShareInfo, error) {
	isOwner, err := s.access.IsOwner(callerID, deviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		logs.Logger.Warnf("list shares: owner check failed for device %d: %v", deviceID, err)
		return []ShareInfo{}, nil
	}
	if !isOwner {
		return nil, ErrForbidden
	}

	var infos []ShareInfo
	err = s.db.Model(&models.DeviceShare{}).
		Select("device_shares.user_id, users.email, users.name, device_shares.role, device_shares.created_at as granted_at").
		Joins("JOIN users ON users.id = device_shares.user_id").
		Where("device_shares.device_id = ?", deviceID).
		Scan(&infos).Error
	if err != nil {
		logs.Logger.Warnf("list shares: lookup failed for device %d: %v", deviceID, err)
		return []ShareInfo{}, nil
	}
	if infos == nil {
		infos = []ShareInfo{}
	}
	return infos, nil
}

// ResolveAuthorizedUsers returns the owner plus every viewer grantee,
// deduplicated. Lookup failures degrade to an empty set so motion fan-out
// treats a broken device row as "nobody to notify" rather than an error.
func (s *SharingService) ResolveAuthorizedUsers(deviceID uint) []uint {
	var device models.Device
	if err := s.db.First(&device, deviceID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logs.Logger.Warnf("resolve recipients: device %d lookup failed: %v", deviceID, err)
		}
		return nil
	}

	seen := map[uint]struct{}{}
	users := []uint{}

	// Owner only counts if the user row still exists.
	var ownerCount int64
	if err := s.db.Model(&models.User{}).Where("id = ?", device.OwnerID).Count(&ownerCount).Error; err == nil && ownerCount > 0 {
		seen[device.OwnerID] = struct{}{}
		users = append(users, device.OwnerID)
	}

	var shares []models.DeviceShare
	if err := s.db.Where("device_id = ?", deviceID).Find(&shares).Error; err != nil {
		logs.Logger.Warnf("resolve recipients: shares lookup failed for device %d: %v", deviceID, err)
		return users
	}
	for _, share := range shares {
		if _, ok := seen[share.UserID]; ok {
			continue
		}
		seen[share.UserID] = struct{}{}
		users = append(users, share.UserID)
	}
	return users
}
