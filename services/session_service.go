package services

import (
	"errors"
	"time"

	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService hands out time-boxed streaming grants. There is no sweeper:
// a session is live iff active && now < expires_at, evaluated on every read.
type SessionService struct {
	db       *gorm.DB
	access   *AccessService
	duration time.Duration

	// now is swapped out by tests to control the clock.
	now func() time.Time
}

func NewSessionService(db *gorm.DB, access *AccessService, duration time.Duration) *SessionService {
	return &SessionService{
		db:       db,
		access:   access,
		duration: duration,
		now:      time.Now,
	}
}

// Start grants the user a streaming session on the device. If a live session
// already exists for this (device, user) pair, it is returned unchanged —
// starting twice within the window extends nothing.
//
// Concurrent starts are settled by the unique (device_id, user_id, active)
// index: two racing inserts can both miss the existence check, but only one
// row lands; the loser re-reads and returns the winner's session.
func (s *SessionService) Start(deviceID, userID uint) (*models.StreamSession, error) {
	ok, err := s.access.CanAccess(userID, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	session, err := s.findOrCreate(deviceID, userID)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the insert race; the winner's row is the grant.
		return s.GetActive(deviceID, userID)
	}
	if err != nil {
		return nil, err
	}

	logs.Logger.Debugf("Session %s live for device %d until %s", session.SessionID, deviceID, session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

func (s *SessionService) findOrCreate(deviceID, userID uint) (*models.StreamSession, error) {
	var session models.StreamSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		err := tx.
			Where("device_id = ? AND user_id = ? AND active = ? AND expires_at > ?",
				deviceID, userID, true, now).
			First(&session).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Retire an expired row still flagged active so the unique index
		// accepts the fresh one.
		if err := tx.Model(&models.StreamSession{}).
			Where("device_id = ? AND user_id = ? AND active = ?", deviceID, userID, true).
			Update("active", nil).Error; err != nil {
			return err
		}

		active := true
		session = models.StreamSession{
			SessionID: uuid.NewString(),
			DeviceID:  deviceID,
			UserID:    userID,
			Active:    &active,
			StartedAt: now,
			ExpiresAt: now.Add(s.duration),
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Stop deactivates a session. Only the user the session was granted to may
// stop it. Stopping an already-inactive session is a no-op.
func (s *SessionService) Stop(sessionID string, callerID uint) error {
	var session models.StreamSession
	if err := s.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if session.UserID != callerID {
		return ErrForbidden
	}
	return s.db.Model(&session).Update("active", nil).Error
}

// GetActive returns the live session for this (device, user) pair, or
// ErrNotFound if there is none. Expired or stopped rows never come back; a
// store failure reads as absent rather than an error.
func (s *SessionService) GetActive(deviceID, userID uint) (*models.StreamSession, error) {
	var session models.StreamSession
	err := s.db.
		Where("device_id = ? AND user_id = ? AND active = ? AND expires_at > ?",
			deviceID, userID, true, s.now()).
		First(&session).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logs.Logger.Warnf("get active session: lookup failed for device %d user %d: %v", deviceID, userID, err)
		}
		return nil, ErrNotFound
	}
	return &session, nil
}

// GetBySessionID returns the session row regardless of liveness. The stream
// relay uses it to resolve the expiry deadline for an already-validated id.
func (s *SessionService) GetBySessionID(sessionID string) (*models.StreamSession, error) {
	var session models.StreamSession
	if err := s.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}
