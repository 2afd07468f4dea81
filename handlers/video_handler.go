package handlers

import (
	"net/http"
	"strconv"

	"birdhouse-viewer/be/models"
	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VideoHandler struct {
	db     *gorm.DB
	access *services.AccessService
	store  services.VideoStore
}

func NewVideoHandler(db *gorm.DB, access *services.AccessService, store services.VideoStore) *VideoHandler {
	return &VideoHandler{db: db, access: access, store: store}
}

// ListVideos returns clip metadata for a device the caller can access.
func (h *VideoHandler) ListVideos(c *gin.Context) {
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

	videos := []models.MotionVideo{}
	if err := h.db.Where("device_id = ?", deviceID).Order("created_at DESC").Find(&videos).Error; err != nil {
		c.JSON(http.StatusOK, []models.MotionVideo{})
		return
	}
	c.JSON(http.StatusOK, videos)
}

// GetVideo streams a clip's bytes, gated by the same access check as the
// live stream.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	userID := c.GetUint("user_id")
	videoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return
	}

	var video models.MotionVideo
	if err := h.db.First(&video, videoID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	ok, err := h.access.CanAccess(userID, video.DeviceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	reader, size, err := h.store.Open(video.ObjectKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, size, video.ContentType, reader, nil)
}
