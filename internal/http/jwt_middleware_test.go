package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/service"
)

func TestJWTAuthMiddleware_AllowsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokenSvc := service.NewTokenService("secret", time.Hour, nil)
	user := domain.User{ID: "u1", Email: "user@example.com", Role: domain.RoleCustomer}
	token, err := tokenSvc.Issue(user, service.ScopeAll, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(tokenSvc), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok || claims.UserID != "u1" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokenSvc := service.NewTokenService("secret", time.Hour, nil)

	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(tokenSvc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsRevokedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokenSvc := service.NewTokenService("secret", time.Hour, nil)
	user := domain.User{ID: "u1", Email: "user@example.com"}
	token, err := tokenSvc.Issue(user, service.ScopeAll, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if err := tokenSvc.RevokeAll("u1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(tokenSvc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
