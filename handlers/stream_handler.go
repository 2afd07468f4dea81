package handlers

import (
	"net/http"
	"strconv"
	"time"

	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"
	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

type StreamHandler struct {
	db       *gorm.DB
	access   *services.AccessService
	sessions *services.SessionService
	hub      *services.StreamHub
}

func NewStreamHandler(db *gorm.DB, access *services.AccessService, sessions *services.SessionService, hub *services.StreamHub) *StreamHandler {
	return &StreamHandler{db: db, access: access, sessions: sessions, hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The session grant is the real gate; origin is not.
		return true
	},
	EnableCompression: true,
}

// How often the relay re-checks that the session is still active, so an
// explicit StopSession cuts the stream before the expiry deadline.
const sessionRecheckInterval = 5 * time.Second

// LiveStream upgrades to WebSocket and forwards the device's JPEG frames to
// the viewer for as long as their session is live. The socket closes at the
// session's expiry instant even if the device keeps publishing.
func (h *StreamHandler) LiveStream(c *gin.Context) {
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

	session, err := h.sessions.GetActive(uint(deviceID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var device models.Device
	if err := h.db.First(&device, deviceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Logger.Warnf("stream: websocket upgrade failed for device %d: %v", deviceID, err)
		return
	}
	defer conn.Close()

	frames := h.hub.Subscribe(device.DeviceID)
	defer h.hub.Unsubscribe(device.DeviceID, frames)

	logs.Logger.Infof("Viewer %d watching device %s until %s", userID, device.DeviceID, session.ExpiresAt.Format(time.RFC3339))

	// Drain reads so close frames and pings are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	expiry := time.NewTimer(time.Until(session.ExpiresAt))
	defer expiry.Stop()
	recheck := time.NewTicker(sessionRecheckInterval)
	defer recheck.Stop()

	for {
		select {
		case frame := <-frames:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-recheck.C:
			if _, err := h.sessions.GetActive(uint(deviceID), userID); err != nil {
				h.closeStream(conn, "session stopped")
				return
			}
		case <-expiry.C:
			h.closeStream(conn, "session expired")
			return
		case <-done:
			return
		}
	}
}

func (h *StreamHandler) closeStream(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
