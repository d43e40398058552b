package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
)

// HealthHandler reporta el estado del servicio y sus dependencias.
type HealthHandler struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	version string
}

func NewHealthHandler(logger *zap.Logger, pool *pgxpool.Pool, redisClient *redis.Client, version string) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		version: version,
	}
}

// Health maneja GET /api/v1/health. Responde 503 si alguna dependencia
// obligatoria no está disponible.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := gin.H{}
	errs := gin.H{}
	healthy := true

	if err := db.Ping(ctx, h.pool); err != nil {
		healthy = false
		services["database"] = "down"
		errs["database"] = err.Error()
		h.logger.Warn("health: database ping failed", zap.Error(err))
	} else {
		services["database"] = "up"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// Redis es opcional: degradado, no caído.
			services["redis"] = "down"
			errs["redis"] = err.Error()
			h.logger.Warn("health: redis ping failed", zap.Error(err))
		} else {
			services["redis"] = "up"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"services":  services,
	}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	c.JSON(code, body)
}
