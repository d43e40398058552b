package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware valida credenciales bearer y guarda claims en el contexto.
// Un token revocado por logout o refresh deja de pasar por aquí.
func JWTAuthMiddleware(tokenSvc *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token service not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokenSvc.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene claims del token bearer desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
