package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/email"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/repository"
)

// BearerIssuer emite y revoca credenciales bearer; opaco para este servicio.
type BearerIssuer interface {
	Issue(user domain.User, scopes []string, ttl time.Duration) (string, error)
	RevokeAll(userID string) error
}

// Options agrupa los parámetros de la máquina de estados de autenticación.
type Options struct {
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
	VerificationExpiry time.Duration
	OTPExpiry          time.Duration
	OTPLength          int
	SessionLifetime    time.Duration
	BaseURL            string
}

func (o Options) withDefaults() Options {
	if o.MaxLoginAttempts <= 0 {
		o.MaxLoginAttempts = 5
	}
	if o.LockoutWindow <= 0 {
		o.LockoutWindow = 15 * time.Minute
	}
	if o.VerificationExpiry <= 0 {
		o.VerificationExpiry = 60 * time.Minute
	}
	if o.OTPExpiry <= 0 {
		o.OTPExpiry = 10 * time.Minute
	}
	if o.OTPLength <= 0 {
		o.OTPLength = 6
	}
	if o.SessionLifetime <= 0 {
		o.SessionLifetime = 30 * 24 * time.Hour
	}
	return o
}

var (
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountNotActive      = errors.New("account is not active")
	ErrAccountLocked         = errors.New("account temporarily locked")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidOrExpiredOTP   = errors.New("invalid or expired otp")
	ErrUserNotFound          = errors.New("user not found")
	ErrConflict              = errors.New("email or phone already in use")
	ErrEmailSendFailure      = errors.New("email send failed")
	ErrRateLimited           = errors.New("rate limited")
)

// hash de relleno: que "no existe el usuario" tarde lo mismo que
// "clave incorrecta".
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return h
}()

// AuthService coordina registro, login con bloqueo por intentos, verificación
// por token y OTP, reseteo de clave y emisión de sesiones.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      repository.TokenRepository
	sessions    repository.SessionRepository
	emailSender email.Sender
	bearer      BearerIssuer
	otpLimiter  OTPRateLimiter
	tx          db.TxRunner
	opts        Options
	now         func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sessions repository.SessionRepository,
	emailSender email.Sender,
	bearer BearerIssuer,
	otpLimiter OTPRateLimiter,
	tx db.TxRunner,
	opts Options,
) *AuthService {
	opts = opts.withDefaults()
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(opts.OTPExpiry, 3)
	}
	if tx == nil {
		tx = passthroughTxRunner{}
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
		emailSender: emailSender,
		bearer:      bearer,
		otpLimiter:  otpLimiter,
		tx:          tx,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	Role      string
}

// Register crea el usuario y emite su token de verificación de correo en una
// transacción. El correo de bienvenida es best-effort: su fallo no revierte
// el registro.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, ip string) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}

	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = domain.RoleCustomer
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        emailAddr,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hashBytes),
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tokenValue, err := randomToken()
	if err != nil {
		return domain.User{}, err
	}

	var verification domain.VerificationToken
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrConflict
			}
			return err
		}
		verification, err = s.issueVerification(ctx, user.ID, domain.TokenTypeEmail, tokenValue, s.opts.VerificationExpiry, ip)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	verifyURL := s.opts.BaseURL + "/api/v1/auth/verify-email/" + verification.Token
	if err := s.emailSender.SendWelcome(ctx, user.Email, user.FirstName, verifyURL); err != nil {
		s.logger.Warn("send welcome email failed", zap.Error(err), zap.String("email", user.Email))
	}

	return user, nil
}

type LoginResult struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	SessionID string      `json:"session_id"`
}

// Login autentica por credenciales aplicando el bloqueo por intentos. El
// predicado de bloqueo se evalúa sobre una relectura dentro de transacción y
// el contador se incrementa de forma atómica en el repositorio.
func (s *AuthService) Login(ctx context.Context, emailAddr, password, ip, userAgent string) (LoginResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !user.CanLogin() {
		return LoginResult{}, ErrAccountNotActive
	}

	locked := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fresh, err := s.users.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if fresh.LoginAttempts >= s.opts.MaxLoginAttempts {
			if fresh.LastFailedLoginAt != nil && fresh.LastFailedLoginAt.Add(s.opts.LockoutWindow).After(s.now()) {
				locked = true
				return nil
			}
			// ventana vencida: el contador vuelve a cero antes de seguir
			return s.users.ResetLoginAttempts(ctx, user.ID, s.now())
		}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	if locked {
		return LoginResult{}, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err := s.users.RecordFailedLogin(ctx, user.ID, s.now()); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	sessionToken, err := randomToken()
	if err != nil {
		return LoginResult{}, err
	}
	session := domain.Session{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Token:          sessionToken,
		IPAddress:      ip,
		UserAgent:      userAgent,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.opts.SessionLifetime),
		CreatedAt:      now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.ResetLoginAttempts(ctx, user.ID, now); err != nil {
			return err
		}
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return LoginResult{}, err
	}
	user.LoginAttempts = 0
	user.LastFailedLoginAt = nil

	bearerToken, err := s.bearer.Issue(user, ScopeAll, 0)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		User:      user,
		Token:     bearerToken,
		TokenType: "Bearer",
		SessionID: session.ID,
	}, nil
}

// Logout revoca todas las credenciales bearer y las sesiones activas.
// Idempotente.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.bearer.RevokeAll(userID); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, userID, s.now())
}

// VerifyEmail consume un token de verificación de correo.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	return s.consumeVerification(ctx, token, domain.TokenTypeEmail)
}

// VerifyPhone consume un token de verificación de teléfono.
func (s *AuthService) VerifyPhone(ctx context.Context, token string) (domain.User, error) {
	return s.consumeVerification(ctx, token, domain.TokenTypePhone)
}

func (s *AuthService) consumeVerification(ctx context.Context, token, tokenType string) (domain.User, error) {
	var user domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		vt, err := s.tokens.FindValidByToken(ctx, token, tokenType, s.now())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}

		now := s.now()
		switch tokenType {
		case domain.TokenTypeEmail:
			err = s.users.SetEmailVerified(ctx, vt.UserID, now)
		case domain.TokenTypePhone:
			err = s.users.SetPhoneVerified(ctx, vt.UserID, now)
		}
		if err != nil {
			return err
		}
		if err := s.tokens.MarkUsed(ctx, vt.ID, now); err != nil {
			return err
		}
		user, err = s.users.GetByID(ctx, vt.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SendEmailOTP emite y envía un código OTP de correo. Devuelve los minutos de
// vigencia. Si el envío falla, el token emitido sigue siendo válido.
func (s *AuthService) SendEmailOTP(ctx context.Context, emailAddr, ip string) (int, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return 0, ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	if s.otpLimiter != nil && !s.otpLimiter.Allow(emailAddr) {
		return 0, ErrRateLimited
	}

	code, err := generateOTP(s.opts.OTPLength)
	if err != nil {
		return 0, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.issueVerification(ctx, user.ID, domain.TokenTypeEmailOTP, code, s.opts.OTPExpiry, ip)
		return err
	})
	if err != nil {
		return 0, err
	}

	minutes := int(s.opts.OTPExpiry.Minutes())
	if err := s.emailSender.SendOTP(ctx, emailAddr, code, minutes); err != nil {
		s.logger.Warn("send otp email failed", zap.Error(err), zap.String("email", emailAddr))
		return minutes, ErrEmailSendFailure
	}
	return minutes, nil
}

// VerifyOTP valida y consume un código OTP. Con tokenType vacío se asume
// email_otp.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code, tokenType string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if tokenType == "" {
		tokenType = domain.TokenTypeEmailOTP
	}
	code = strings.TrimSpace(code)
	if !isNumericCode(code, s.opts.OTPLength) {
		return domain.User{}, ErrInvalidOrExpiredOTP
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		vt, err := s.tokens.FindValidForUser(ctx, user.ID, code, tokenType, s.now())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidOrExpiredOTP
			}
			return err
		}

		now := s.now()
		switch tokenType {
		case domain.TokenTypeEmailOTP:
			if err := s.users.SetEmailVerified(ctx, user.ID, now); err != nil {
				return err
			}
			user.EmailVerified = true
		case domain.TokenTypePhoneOTP:
			if err := s.users.SetPhoneVerified(ctx, user.ID, now); err != nil {
				return err
			}
			user.PhoneVerified = true
		}
		return s.tokens.MarkUsed(ctx, vt.ID, now)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SendPasswordResetEmail emite un token de reseteo y lo envía. Si el correo
// no existe devuelve nil sin revelar nada; el envío es best-effort.
func (s *AuthService) SendPasswordResetEmail(ctx context.Context, emailAddr, ip string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	tokenValue, err := randomToken()
	if err != nil {
		return err
	}

	var verification domain.VerificationToken
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		verification, err = s.issueVerification(ctx, user.ID, domain.TokenTypePasswordReset, tokenValue, s.opts.VerificationExpiry, ip)
		return err
	})
	if err != nil {
		return err
	}

	resetURL := s.opts.BaseURL + "/api/v1/auth/reset-password/" + verification.Token
	if err := s.emailSender.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("email", user.Email))
	}
	return nil
}

// ResetPassword consume un token de reseteo y guarda la clave nueva.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (domain.User, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		vt, err := s.tokens.FindValidByToken(ctx, token, domain.TokenTypePasswordReset, s.now())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}

		now := s.now()
		if err := s.users.UpdatePassword(ctx, vt.UserID, string(hashBytes), now); err != nil {
			return err
		}
		if err := s.tokens.MarkUsed(ctx, vt.ID, now); err != nil {
			return err
		}
		user, err = s.users.GetByID(ctx, vt.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// RefreshToken revoca las credenciales vigentes y emite una nueva.
func (s *AuthService) RefreshToken(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if err := s.bearer.RevokeAll(user.ID); err != nil {
		return "", err
	}
	return s.bearer.Issue(user, ScopeAll, 0)
}

// issueVerification invalida los tokens vivos del mismo tipo y crea uno
// nuevo. Debe llamarse dentro de una transacción.
func (s *AuthService) issueVerification(ctx context.Context, userID, tokenType, value string, ttl time.Duration, ip string) (domain.VerificationToken, error) {
	now := s.now()
	if err := s.tokens.InvalidateUnused(ctx, userID, tokenType, now); err != nil {
		return domain.VerificationToken{}, err
	}
	vt := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     value,
		Type:      tokenType,
		IPAddress: ip,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, vt); err != nil {
		return domain.VerificationToken{}, err
	}
	return vt, nil
}

// randomToken genera un secreto opaco de 64 caracteres hex.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateOTP genera un código numérico con fuente criptográfica; un OTP de
// 10 minutos equivale a un secreto bearer.
func generateOTP(length int) (string, error) {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteString(n.String())
	}
	return sb.String(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNumericCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// OTPRateLimiter limita la frecuencia de solicitudes de OTP por clave.
type OTPRateLimiter interface {
	Allow(key string) bool
}

type otpRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewOTPRateLimiter crea un rate limiter en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &otpRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *otpRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
