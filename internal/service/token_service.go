package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
)

// TokenService emite y valida credenciales bearer (JWT HS256). Cada token
// lleva un jti registrado en el RevocationStore, de modo que logout y refresh
// pueden invalidar todo lo emitido para un usuario.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  RevocationStore
}

type Claims struct {
	UserID        string   `json:"uid"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	EmailVerified bool     `json:"email_verified"`
	Scopes        []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// ScopeAll es el alcance completo que recibe un login normal.
var ScopeAll = []string{"*"}

func NewTokenService(secret string, ttl time.Duration, store RevocationStore) *TokenService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if store == nil {
		store = NewMemoryRevocationStore()
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "sooqnaa",
		store:  store,
	}
}

// Issue firma un token para el usuario. Con ttl <= 0 aplica el TTL por defecto.
func (s *TokenService) Issue(user domain.User, scopes []string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := Claims{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		Scopes:        scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if err := s.store.Store(jti, user.ID, ttl); err != nil {
		return "", err
	}
	return signed, nil
}

// Parse valida firma, emisor y vigencia, incluida la revocación.
func (s *TokenService) Parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	ok, err := s.store.Exists(claims.ID)
	if err != nil || !ok {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// RevokeAll invalida toda credencial emitida para el usuario.
func (s *TokenService) RevokeAll(userID string) error {
	return s.store.RevokeAllForUser(userID)
}

func (s *TokenService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.ID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
