package handlers

import (
	"net/http"
	"strconv"

	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartSession grants the caller a time-boxed stream session on the device.
// Calling it again inside the window returns the same session and expiry.
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	session, err := h.sessions.Start(uint(deviceID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) StopSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	sessionID := c.Param("id")

	if err := h.sessions.Stop(sessionID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session stopped"})
}

func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device id"})
		return
	}

	session, err := h.sessions.GetActive(uint(deviceID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
