package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
	RoleCustomer = "customer"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusBanned    = "banned"
)

type User struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	EmailVerified     bool       `json:"email_verified"`
	PhoneVerified     bool       `json:"phone_verified"`
	LoginAttempts     int        `json:"-"`
	LastFailedLoginAt *time.Time `json:"-"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"-"`
}

// CanLogin indica si la cuenta admite autenticación por credenciales.
func (u User) CanLogin() bool {
	return u.Status == StatusActive
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
