package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger  *zap.Logger
	authSvc *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		authSvc: authSvc,
	}
}

// Register maneja POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required,max=100"`
		LastName  string `json:"last_name" binding:"required,max=100"`
		Email     string `json:"email" binding:"required,email"`
		Phone     string `json:"phone" binding:"omitempty,max=20"`
		Password  string `json:"password" binding:"required,min=8"`
		Role      string `json:"role" binding:"omitempty,oneof=admin merchant customer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		Role:      req.Role,
	}, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "email or phone already in use"})
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully. Please check your email for verification.",
		"user":    user,
	})
}

// Login maneja POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAccountNotActive),
			errors.Is(err, service.ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       result.User,
		"token":      result.Token,
		"token_type": result.TokenType,
		"session_id": result.SessionID,
	})
}

// Logout maneja POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me maneja GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
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
		h.logger.Error("get current user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RefreshToken maneja POST /api/v1/auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	token, err := h.authSvc.RefreshToken(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("token refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Token refreshed successfully",
		"token":      token,
		"token_type": "Bearer",
	})
}

// VerifyEmail maneja GET /api/v1/auth/verify-email/:token.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.authSvc.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired verification token"})
			return
		}
		h.logger.Error("verify email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// VerifyPhone maneja GET /api/v1/auth/verify-phone/:token.
func (h *AuthHandler) VerifyPhone(c *gin.Context) {
	user, err := h.authSvc.VerifyPhone(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired verification token"})
			return
		}
		h.logger.Error("verify phone failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify phone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Phone verified successfully",
		"user":    user,
	})
}

// ForgotPassword maneja POST /api/v1/auth/forgot-password. La respuesta es la
// misma exista o no el correo.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authSvc.SendPasswordResetEmail(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		h.logger.Error("password reset email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send password reset email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent successfully"})
}

// ResetPassword maneja POST /api/v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authSvc.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
			return
		}
		h.logger.Error("reset password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successfully",
		"user":    user,
	})
}

// SendOTP maneja POST /api/v1/auth/send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	minutes, err := h.authSvc.SendEmailOTP(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
			return
		default:
			h.logger.Error("send otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send otp"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "OTP sent successfully",
		"expires_in_minutes": minutes,
	})
}

// VerifyOTP maneja POST /api/v1/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authSvc.VerifyOTP(c.Request.Context(), req.Email, req.OTP, "")
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrInvalidOrExpiredOTP):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired otp"})
			return
		default:
			h.logger.Error("verify otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify otp"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP verified successfully",
		"user":    user,
	})
}
