package handlers

import (
	"errors"
	"net/http"
	"time"

	"birdhouse-viewer/be/config"
	"birdhouse-viewer/be/models"
	"birdhouse-viewer/be/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db        *gorm.DB
	provider  services.IdentityProvider
	jwtConfig config.JWTConfig
}

func NewAuthHandler(db *gorm.DB, provider services.IdentityProvider, jwtConfig config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		db:        db,
		provider:  provider,
		jwtConfig: jwtConfig,
	}
}

type LoginRequest struct {
	ProviderToken string `json:"provider_token" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// Login verifies the OAuth provider token, upserts the user keyed by the
// provider's subject id, and issues our own JWT for the API.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.provider.Verify(req.ProviderToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login token"})
		return
	}

	var user models.User
	err = h.db.Where("external_id = ?", identity.ExternalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ExternalID: identity.ExternalID,
			Email:      identity.Email,
			Name:       identity.Name,
		}
		if err := h.db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	} else if user.Email != identity.Email || user.Name != identity.Name {
		// Keep profile fields current with the provider.
		user.Email = identity.Email
		user.Name = identity.Name
		if err := h.db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	expiry, _ := time.ParseDuration(h.jwtConfig.Expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(expiry).Unix(),
	})

	tokenString, err := token.SignedString([]byte(h.jwtConfig.Secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: tokenString,
		User: UserResponse{
			ID:      user.ID,
			Email:   user.Email,
			Name:    user.Name,
			IsAdmin: user.IsAdmin,
		},
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// Stateless JWT: logout is handled client-side by dropping the token.
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
