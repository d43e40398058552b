package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	tokenSvc *service.TokenService,
	authH *AuthHandler,
	profileH *ProfileHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	v1 := r.Group("/api/v1")
	v1.GET("/health", healthH.Health)

	auth := v1.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.GET("/verify-email/:token", authH.VerifyEmail)
	auth.GET("/verify-phone/:token", authH.VerifyPhone)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.POST("/send-otp", authH.SendOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)

	protected := v1.Group("")
	protected.Use(JWTAuthMiddleware(tokenSvc))
	protected.POST("/auth/logout", authH.Logout)
	protected.POST("/auth/refresh", authH.RefreshToken)
	protected.GET("/auth/me", authH.Me)
	protected.GET("/profile", profileH.GetProfile)
	protected.PUT("/profile", profileH.UpdateProfile)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
