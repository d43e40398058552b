package domain

import "time"

// Tipos de token de verificación.
const (
	TokenTypeEmail         = "email"
	TokenTypePhone         = "phone"
	TokenTypePasswordReset = "password_reset"
	TokenTypeEmailOTP      = "email_otp"
	TokenTypePhoneOTP      = "phone_otp"
)

// VerificationToken es un secreto de un solo uso ligado a un usuario.
// Nunca se borra físicamente; queda como rastro de auditoría.
type VerificationToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	Type      string     `json:"type"`
	IPAddress string     `json:"ip_address,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsValid indica si el token puede consumirse: no usado y no vencido.
func (t VerificationToken) IsValid(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}
