package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateKey
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user domain.User) error {
	stored, ok := m.usersByID[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Phone = user.Phone
	stored.AvatarURL = user.AvatarURL
	stored.UpdatedAt = user.UpdatedAt
	m.usersByID[user.ID] = stored
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, at time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetEmailVerified(_ context.Context, id string, at time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerified = true
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetPhoneVerified(_ context.Context, id string, at time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PhoneVerified = true
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) RecordFailedLogin(_ context.Context, id string, at time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LoginAttempts++
	ts := at
	user.LastFailedLoginAt = &ts
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) ResetLoginAttempts(_ context.Context, id string, at time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LoginAttempts = 0
	user.LastFailedLoginAt = nil
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

type mockTokenRepo struct {
	tokens map[string]domain.VerificationToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]domain.VerificationToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, token domain.VerificationToken) error {
	m.tokens[token.ID] = token
	return nil
}

func (m *mockTokenRepo) InvalidateUnused(_ context.Context, userID, tokenType string, at time.Time) error {
	for id, t := range m.tokens {
		if t.UserID == userID && t.Type == tokenType && !t.Used {
			t.Used = true
			ts := at
			t.UsedAt = &ts
			m.tokens[id] = t
		}
	}
	return nil
}

func (m *mockTokenRepo) FindValidByToken(_ context.Context, token, tokenType string, now time.Time) (domain.VerificationToken, error) {
	for _, t := range m.tokens {
		if t.Token == token && t.Type == tokenType && t.IsValid(now) {
			return t, nil
		}
	}
	return domain.VerificationToken{}, pgx.ErrNoRows
}

func (m *mockTokenRepo) FindValidForUser(_ context.Context, userID, token, tokenType string, now time.Time) (domain.VerificationToken, error) {
	for _, t := range m.tokens {
		if t.UserID == userID && t.Token == token && t.Type == tokenType && t.IsValid(now) {
			return t, nil
		}
	}
	return domain.VerificationToken{}, pgx.ErrNoRows
}

func (m *mockTokenRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	t, ok := m.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Used = true
	ts := at
	t.UsedAt = &ts
	m.tokens[id] = t
	return nil
}

func (m *mockTokenRepo) validCount(userID, tokenType string, now time.Time) int {
	count := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.Type == tokenType && t.IsValid(now) {
			count++
		}
	}
	return count
}

type mockSessionRepo struct {
	sessions map[string]domain.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session domain.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSessionRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	for id, s := range m.sessions {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			s.LastAccessedAt = at
			m.sessions[id] = s
		}
	}
	return nil
}

func (m *mockSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.LastAccessedAt = at
	m.sessions[id] = s
	return nil
}

type mockSender struct {
	welcomeTo  string
	welcomeURL string
	welcomeErr error

	otpTo      string
	otpCode    string
	otpMinutes int
	otpErr     error

	resetTo  string
	resetURL string
	resetErr error
}

func (m *mockSender) SendWelcome(_ context.Context, toEmail, _ string, verificationURL string) error {
	m.welcomeTo = toEmail
	m.welcomeURL = verificationURL
	return m.welcomeErr
}

func (m *mockSender) SendOTP(_ context.Context, toEmail, code string, expiresInMinutes int) error {
	m.otpTo = toEmail
	m.otpCode = code
	m.otpMinutes = expiresInMinutes
	return m.otpErr
}

func (m *mockSender) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	m.resetTo = toEmail
	m.resetURL = resetURL
	return m.resetErr
}

type mockBearer struct {
	issued  int
	revoked []string
	err     error
}

func (m *mockBearer) Issue(_ domain.User, _ []string, _ time.Duration) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.issued++
	return fmt.Sprintf("bearer-%d", m.issued), nil
}

func (m *mockBearer) RevokeAll(userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

type mockLimiter struct {
	allow bool
}

func (m *mockLimiter) Allow(_ string) bool {
	return m.allow
}

type authFixture struct {
	svc      *AuthService
	users    *mockUserRepo
	tokens   *mockTokenRepo
	sessions *mockSessionRepo
	sender   *mockSender
	bearer   *mockBearer
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    newMockUserRepo(),
		tokens:   newMockTokenRepo(),
		sessions: newMockSessionRepo(),
		sender:   &mockSender{},
		bearer:   &mockBearer{},
	}
	f.svc = NewAuthService(
		zap.NewNop(),
		f.users,
		f.tokens,
		f.sessions,
		f.sender,
		f.bearer,
		&mockLimiter{allow: true},
		nil,
		Options{BaseURL: "http://localhost:8080"},
	)
	return f
}

func (f *authFixture) register(t *testing.T, emailAddr, password string) domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     emailAddr,
		Password:  password,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return user
}

func TestAuthServiceRegister_Success(t *testing.T) {
	f := newAuthFixture()

	user := f.register(t, "user@example.com", "secret-password")
	if user.ID == "" {
		t.Fatalf("expected user id assigned")
	}
	if user.Role != domain.RoleCustomer {
		t.Fatalf("expected default role customer, got %s", user.Role)
	}
	if user.Status != domain.StatusActive {
		t.Fatalf("expected active status, got %s", user.Status)
	}
	if user.EmailVerified {
		t.Fatalf("expected email not verified yet")
	}

	if f.sender.welcomeTo != "user@example.com" {
		t.Fatalf("expected welcome email, got %q", f.sender.welcomeTo)
	}
	if !strings.Contains(f.sender.welcomeURL, "/api/v1/auth/verify-email/") {
		t.Fatalf("expected verification url, got %q", f.sender.welcomeURL)
	}

	if got := f.tokens.validCount(user.ID, domain.TokenTypeEmail, time.Now().UTC()); got != 1 {
		t.Fatalf("expected one valid verification token, got %d", got)
	}
}

func TestAuthServiceRegister_NormalizesEmail(t *testing.T) {
	f := newAuthFixture()

	user := f.register(t, "  User@Example.COM ", "secret-password")
	if user.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
}

func TestAuthServiceRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "User",
		Email:     "user@example.com",
		Password:  "another-password",
	}, "127.0.0.1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthServiceRegister_WelcomeFailureDoesNotFail(t *testing.T) {
	f := newAuthFixture()
	f.sender.welcomeErr = errors.New("smtp down")

	user := f.register(t, "user@example.com", "secret-password")
	if _, err := f.users.GetByID(context.Background(), user.ID); err != nil {
		t.Fatalf("expected user persisted despite email failure, got %v", err)
	}
}

func TestAuthServiceLogin_Success(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	result, err := f.svc.Login(context.Background(), "user@example.com", "secret-password", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if result.Token == "" || result.TokenType != "Bearer" {
		t.Fatalf("expected bearer token, got %q %q", result.Token, result.TokenType)
	}
	if result.SessionID == "" {
		t.Fatalf("expected session id")
	}

	session, err := f.sessions.GetByID(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("expected session stored, got %v", err)
	}
	if session.UserID != user.ID || session.Revoked {
		t.Fatalf("expected active session for user")
	}
	if !session.IsActive(time.Now().UTC()) {
		t.Fatalf("expected session active")
	}
}

func TestAuthServiceLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever", "127.0.0.1", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthServiceLogin_WrongPasswordIncrementsAttempts(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	_, err := f.svc.Login(context.Background(), "user@example.com", "wrong", "127.0.0.1", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if stored.LoginAttempts != 1 {
		t.Fatalf("expected 1 failed attempt, got %d", stored.LoginAttempts)
	}
	if stored.LastFailedLoginAt == nil {
		t.Fatalf("expected last failed login recorded")
	}
}

func TestAuthServiceLogin_LockoutAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(context.Background(), "user@example.com", "wrong", "127.0.0.1", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// La clave correcta tampoco entra mientras dura el bloqueo.
	_, err := f.svc.Login(context.Background(), "user@example.com", "secret-password", "127.0.0.1", "")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestAuthServiceLogin_LockoutWindowElapses(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(context.Background(), "user@example.com", "wrong", "127.0.0.1", "")
	}

	f.svc.now = func() time.Time { return time.Now().UTC().Add(16 * time.Minute) }

	result, err := f.svc.Login(context.Background(), "user@example.com", "secret-password", "127.0.0.1", "")
	if err != nil {
		t.Fatalf("expected login after window elapsed, got %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected bearer token")
	}

	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if stored.LoginAttempts != 0 || stored.LastFailedLoginAt != nil {
		t.Fatalf("expected attempts reset after successful login")
	}
}

func TestAuthServiceLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	stored, _ := f.users.GetByID(context.Background(), user.ID)
	stored.Status = domain.StatusSuspended
	f.users.usersByID[user.ID] = stored

	_, err := f.svc.Login(context.Background(), "user@example.com", "secret-password", "127.0.0.1", "")
	if !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}
}

func TestAuthServiceVerifyEmail_ConsumesToken(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	parts := strings.Split(f.sender.welcomeURL, "/")
	token := parts[len(parts)-1]
	if len(token) != 64 {
		t.Fatalf("expected 64 char token, got %d", len(token))
	}

	verified, err := f.svc.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("expected verify success, got %v", err)
	}
	if !verified.EmailVerified {
		t.Fatalf("expected email verified")
	}
	if verified.ID != user.ID {
		t.Fatalf("expected same user")
	}

	// Un token es de un solo uso.
	_, err = f.svc.VerifyEmail(context.Background(), token)
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken on reuse, got %v", err)
	}
}

func TestAuthServiceVerifyEmail_UnknownToken(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.VerifyEmail(context.Background(), strings.Repeat("a", 64))
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestAuthServiceSendEmailOTP_UnknownUser(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.SendEmailOTP(context.Background(), "nobody@example.com", "127.0.0.1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthServiceSendEmailOTP_RateLimited(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")
	f.svc.otpLimiter = &mockLimiter{allow: false}

	_, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAuthServiceOTP_RoundTrip(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	minutes, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1")
	if err != nil {
		t.Fatalf("expected otp sent, got %v", err)
	}
	if minutes != 10 {
		t.Fatalf("expected 10 minute expiry, got %d", minutes)
	}
	if len(f.sender.otpCode) != 6 {
		t.Fatalf("expected 6 digit otp, got %q", f.sender.otpCode)
	}

	verified, err := f.svc.VerifyOTP(context.Background(), "user@example.com", f.sender.otpCode, "")
	if err != nil {
		t.Fatalf("expected verify success, got %v", err)
	}
	if !verified.EmailVerified || verified.ID != user.ID {
		t.Fatalf("expected email verified for user")
	}

	// El código se consume al verificar.
	_, err = f.svc.VerifyOTP(context.Background(), "user@example.com", f.sender.otpCode, "")
	if !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Fatalf("expected ErrInvalidOrExpiredOTP on reuse, got %v", err)
	}
}

func TestAuthServiceOTP_NewCodeInvalidatesOld(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")

	if _, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1"); err != nil {
		t.Fatalf("first otp failed: %v", err)
	}
	firstCode := f.sender.otpCode

	if _, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1"); err != nil {
		t.Fatalf("second otp failed: %v", err)
	}
	if f.sender.otpCode == firstCode {
		t.Skipf("otp collision")
	}

	_, err := f.svc.VerifyOTP(context.Background(), "user@example.com", firstCode, "")
	if !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
}

func TestAuthServiceOTP_ExpiredCode(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")

	if _, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1"); err != nil {
		t.Fatalf("otp failed: %v", err)
	}
	code := f.sender.otpCode

	f.svc.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }

	_, err := f.svc.VerifyOTP(context.Background(), "user@example.com", code, "")
	if !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Fatalf("expected ErrInvalidOrExpiredOTP, got %v", err)
	}
}

func TestAuthServiceSendEmailOTP_SendFailureKeepsCodeValid(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "secret-password")
	f.sender.otpErr = errors.New("smtp down")

	_, err := f.svc.SendEmailOTP(context.Background(), "user@example.com", "127.0.0.1")
	if !errors.Is(err, ErrEmailSendFailure) {
		t.Fatalf("expected ErrEmailSendFailure, got %v", err)
	}

	// El código quedó emitido y sigue siendo canjeable.
	if _, err := f.svc.VerifyOTP(context.Background(), "user@example.com", f.sender.otpCode, ""); err != nil {
		t.Fatalf("expected code still valid after send failure, got %v", err)
	}
}

func TestAuthServicePasswordReset_UnknownEmailSilent(t *testing.T) {
	f := newAuthFixture()

	if err := f.svc.SendPasswordResetEmail(context.Background(), "nobody@example.com", "127.0.0.1"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if f.sender.resetTo != "" {
		t.Fatalf("expected no email sent, got %q", f.sender.resetTo)
	}
}

func TestAuthServicePasswordReset_RoundTrip(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "user@example.com", "old-password")

	if err := f.svc.SendPasswordResetEmail(context.Background(), "user@example.com", "127.0.0.1"); err != nil {
		t.Fatalf("expected reset email, got %v", err)
	}
	parts := strings.Split(f.sender.resetURL, "/")
	token := parts[len(parts)-1]

	user, err := f.svc.ResetPassword(context.Background(), token, "new-password")
	if err != nil {
		t.Fatalf("expected reset success, got %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")); err != nil {
		t.Fatalf("expected new password stored: %v", err)
	}

	if _, err := f.svc.Login(context.Background(), "user@example.com", "old-password", "127.0.0.1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "user@example.com", "new-password", "127.0.0.1", ""); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}

	// El token de reseteo es de un solo uso.
	_, err = f.svc.ResetPassword(context.Background(), token, "another-password")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken on reuse, got %v", err)
	}
}

func TestAuthServiceLogout_RevokesEverything(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	result, err := f.svc.Login(context.Background(), "user@example.com", "secret-password", "127.0.0.1", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(f.bearer.revoked) != 1 || f.bearer.revoked[0] != user.ID {
		t.Fatalf("expected bearer tokens revoked for user")
	}

	session, _ := f.sessions.GetByID(context.Background(), result.SessionID)
	if !session.Revoked {
		t.Fatalf("expected session revoked")
	}
}

func TestAuthServiceRefreshToken(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	token, err := f.svc.RefreshToken(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected new token")
	}
	if len(f.bearer.revoked) != 1 || f.bearer.revoked[0] != user.ID {
		t.Fatalf("expected previous tokens revoked first")
	}
}

func TestAuthServiceRefreshToken_UnknownUser(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.RefreshToken(context.Background(), "missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "user@example.com", "secret-password")

	newName := "Renamed"
	phone := "+1234567890"
	updated, err := f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		FirstName: &newName,
		Phone:     &phone,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.FirstName != "Renamed" || updated.Phone != "+1234567890" {
		t.Fatalf("expected updated fields, got %+v", updated)
	}
	if updated.LastName != "User" {
		t.Fatalf("expected untouched last name, got %q", updated.LastName)
	}
}

func TestGenerateOTP_Format(t *testing.T) {
	code, err := generateOTP(6)
	if err != nil {
		t.Fatalf("generate otp failed: %v", err)
	}
	if !isNumericCode(code, 6) {
		t.Fatalf("expected 6 digit numeric code, got %q", code)
	}
}

func TestRandomToken_Length(t *testing.T) {
	token, err := randomToken()
	if err != nil {
		t.Fatalf("random token failed: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
}

func TestOTPRateLimiter_Window(t *testing.T) {
	limiter := NewOTPRateLimiter(10*time.Minute, 3)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("user@example.com") {
			t.Fatalf("expected attempt %d allowed", i+1)
		}
	}
	if limiter.Allow("user@example.com") {
		t.Fatalf("expected fourth attempt denied")
	}
	if !limiter.Allow("other@example.com") {
		t.Fatalf("expected independent key allowed")
	}
}
