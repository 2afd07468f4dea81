package handlers

import (
	"net/http"
	"strconv"

	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	sharing *services.SharingService
}

func NewShareHandler(sharing *services.SharingService) *ShareHandler {
	return &ShareHandler{sharing: sharing}
}

type ShareRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *ShareHandler) CreateShare(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	share, err := h.sharing.Share(uint(deviceID), userID, req.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, share)
}

func (h *ShareHandler) DeleteShare(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}
	granteeID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if err := h.sharing.Unshare(uint(deviceID), userID, uint(granteeID)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Share revoked"})
}

func (h *ShareHandler) ListShares(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	shares, err := h.sharing.ListShares(uint(deviceID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, shares)
}
