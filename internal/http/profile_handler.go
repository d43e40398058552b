package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

// ProfileHandler expone lectura y edición del perfil propio.
type ProfileHandler struct {
	logger  *zap.Logger
	authSvc *service.AuthService
}

func NewProfileHandler(logger *zap.Logger, authSvc *service.AuthService) *ProfileHandler {
	return &ProfileHandler{
		logger:  logger,
		authSvc: authSvc,
	}
}

// GetProfile maneja GET /api/v1/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	user, err := h.authSvc.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile maneja PUT /api/v1/profile. Solo toca los campos presentes.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req struct {
		FirstName *string `json:"first_name" binding:"omitempty,max=100"`
		LastName  *string `json:"last_name" binding:"omitempty,max=100"`
		Phone     *string `json:"phone" binding:"omitempty,max=20"`
		AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authSvc.UpdateProfile(c.Request.Context(), claims.UserID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "phone already in use"})
			return
		default:
			h.logger.Error("update profile failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
