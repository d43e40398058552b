package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/config"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/email"
	apihttp "github.com/yousefabuzaid/sooqnaa-backend-main/internal/http"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/repository"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	tokenRepo := repository.NewPgTokenRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)
	txRunner := db.NewTxRunner(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.AppName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter      service.OTPRateLimiter
		revocationStore service.RevocationStore
		redisClient     *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, 10*time.Minute, 3)
			revocationStore = service.NewRedisRevocationStore(redisClient)
		}
		cancel()
	}

	tokenSvc := service.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.TokenTTLDays)*24*time.Hour,
		revocationStore,
	)

	authSvc := service.NewAuthService(
		logger,
		userRepo,
		tokenRepo,
		sessionRepo,
		emailSender,
		tokenSvc,
		otpLimiter,
		txRunner,
		service.Options{
			MaxLoginAttempts:   cfg.MaxLoginAttempts,
			LockoutWindow:      time.Duration(cfg.LockoutMinutes) * time.Minute,
			VerificationExpiry: time.Duration(cfg.VerificationExpiryMinutes) * time.Minute,
			OTPExpiry:          time.Duration(cfg.OTPExpiryMinutes) * time.Minute,
			OTPLength:          cfg.OTPLength,
			SessionLifetime:    time.Duration(cfg.SessionLifetimeDays) * 24 * time.Hour,
			BaseURL:            cfg.AppBaseURL,
		},
	)

	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	profileHandler := apihttp.NewProfileHandler(logger, authSvc)
	healthHandler := apihttp.NewHealthHandler(logger, pool, redisClient, version)
	router := apihttp.NewRouter(logger, tokenSvc, authHandler, profileHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
