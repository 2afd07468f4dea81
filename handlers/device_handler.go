package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"
	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DeviceHandler struct {
	db     *gorm.DB
	access *services.AccessService
}

func NewDeviceHandler(db *gorm.DB, access *services.AccessService) *DeviceHandler {
	return &DeviceHandler{db: db, access: access}
}

type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type UpdateDeviceRequest struct {
	Name *string `json:"name"`
}

// DeviceResponse is a device plus the caller's relationship to it.
type DeviceResponse struct {
	ID           uint       `json:"id"`
	DeviceID     string     `json:"device_id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	LastMotionAt *time.Time `json:"last_motion_at,omitempty"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

func deviceResponse(d models.Device, role string) DeviceResponse {
	return DeviceResponse{
		ID:           d.ID,
		DeviceID:     d.DeviceID,
		Name:         d.Name,
		Status:       d.Status,
		LastSeen:     d.LastSeen,
		LastMotionAt: d.LastMotionAt,
		Role:         role,
		CreatedAt:    d.CreatedAt,
	}
}

// RegisterDevice claims a device id for the caller. The external id is
// unique across the system; a second registration conflicts.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := h.db.Model(&models.Device{}).Where("device_id = ?", req.DeviceID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Device already registered"})
		return
	}

	device := models.Device{
		DeviceID: req.DeviceID,
		OwnerID:  userID,
		Name:     req.Name,
		Status:   "offline",
	}
	if err := h.db.Create(&device).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return
	}

	c.JSON(http.StatusCreated, deviceResponse(device, models.RoleOwner))
}

// GetDevices lists devices the caller owns plus devices shared with them.
// A store failure degrades to an empty list rather than an error.
func (h *DeviceHandler) GetDevices(c *gin.Context) {
	userID := c.GetUint("user_id")
	result := []DeviceResponse{}

	var owned []models.Device
	if err := h.db.Where("owner_id = ?", userID).Find(&owned).Error; err != nil {
		logs.Logger.Warnf("list devices: owned lookup failed for user %d: %v", userID, err)
		c.JSON(http.StatusOK, result)
		return
	}
	for _, d := range owned {
		result = append(result, deviceResponse(d, models.RoleOwner))
	}

	var shared []models.Device
	if err := h.db.
		Joins("JOIN device_shares ON device_shares.device_id = devices.id").
		Where("device_shares.user_id = ?", userID).
		Find(&shared).Error; err != nil {
		logs.Logger.Warnf("list devices: shared lookup failed for user %d: %v", userID, err)
		c.JSON(http.StatusOK, result)
		return
	}
	for _, d := range shared {
		result = append(result, deviceResponse(d, models.RoleViewer))
	}

	c.JSON(http.StatusOK, result)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	ok, err := h.access.CanAccess(userID, uint(deviceID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var device models.Device
	if err := h.db.First(&device, deviceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	role := models.RoleViewer
	if device.OwnerID == userID {
		role = models.RoleOwner
	}
	c.JSON(http.StatusOK, deviceResponse(device, role))
}

func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	isOwner, err := h.access.IsOwner(userID, uint(deviceID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can update a device"})
		return
	}

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var device models.Device
	if err := h.db.First(&device, deviceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if err := h.db.Save(&device).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update device"})
		return
	}

	c.JSON(http.StatusOK, deviceResponse(device, models.RoleOwner))
}

// DeleteDevice removes the device and everything hanging off it: shares,
// sessions, motion events and video records.
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	isOwner, err := h.access.IsOwner(userID, uint(deviceID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete a device"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.DeviceShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.StreamSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.MotionEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.MotionVideo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Device{}, deviceID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device deleted successfully"})
}

// respondServiceError maps the services error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
