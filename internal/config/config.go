package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	AppName    string `env:"APP_NAME" envDefault:"sooqnaa"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	HTTPPort   string `env:"HTTP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret    string `env:"JWT_SECRET,required"`
	TokenTTLDays int    `env:"TOKEN_TTL_DAYS" envDefault:"30"`

	MaxLoginAttempts          int `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutMinutes            int `env:"LOCKOUT_MINUTES" envDefault:"15"`
	VerificationExpiryMinutes int `env:"VERIFICATION_EXPIRY_MINUTES" envDefault:"60"`
	OTPExpiryMinutes          int `env:"OTP_EXPIRY_MINUTES" envDefault:"10"`
	OTPLength                 int `env:"OTP_LENGTH" envDefault:"6"`
	SessionLifetimeDays       int `env:"SESSION_LIFETIME_DAYS" envDefault:"30"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
