package handlers

import (
	"errors"
	"net/http"

	"birdhouse-viewer/be/models"
	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SubscriptionHandler struct {
	db            *gorm.DB
	notifications *services.NotificationService
}

func NewSubscriptionHandler(db *gorm.DB, notifications *services.NotificationService) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, notifications: notifications}
}

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// Subscribe registers (or refreshes) the caller's browser push endpoint.
// The endpoint is the natural key: a re-subscribe from the same browser
// updates keys and ownership in place.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sub models.PushSubscription
	err := h.db.Where("endpoint = ?", req.Endpoint).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = models.PushSubscription{
			UserID:   userID,
			Endpoint: req.Endpoint,
			P256DH:   req.Keys.P256DH,
			Auth:     req.Keys.Auth,
		}
		if err := h.db.Create(&sub).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
			return
		}
		c.JSON(http.StatusCreated, sub)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sub.UserID = userID
	sub.P256DH = req.Keys.P256DH
	sub.Auth = req.Keys.Auth
	if err := h.db.Save(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.
		Where("endpoint = ? AND user_id = ?", req.Endpoint, userID).
		Delete(&models.PushSubscription{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

type BroadcastRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// Broadcast pushes a system notification to every subscription. Admin only;
// the flag lives on the user row and plays no part in device authorization.
func (h *SubscriptionHandler) Broadcast(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil || !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin only"})
		return
	}

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.notifications.Broadcast(services.NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  map[string]interface{}{"type": "system"},
	})
	c.JSON(http.StatusOK, result)
}
