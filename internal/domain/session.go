package domain

import "time"

// Session registra un inicio de sesión para auditoría y revocación.
// La credencial bearer que recibe el cliente se emite aparte.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Token          string    `json:"-"`
	Revoked        bool      `json:"revoked"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent,omitempty"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsActive indica si la sesión sigue vigente.
func (s Session) IsActive(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
