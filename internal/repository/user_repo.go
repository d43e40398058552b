package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
// Los métodos devuelven pgx.ErrNoRows cuando no hay coincidencia.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	SetEmailVerified(ctx context.Context, id string, at time.Time) error
	SetPhoneVerified(ctx context.Context, id string, at time.Time) error
	RecordFailedLogin(ctx context.Context, id string, at time.Time) error
	ResetLoginAttempts(ctx context.Context, id string, at time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, first_name, last_name, email, phone, password_hash, role, status,
	email_verified, phone_verified, login_attempts, last_failed_login_at,
	avatar_url, created_at, updated_at, deleted_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (
			id, first_name, last_name, email, phone, password_hash, role, status,
			email_verified, phone_verified, login_attempts, avatar_url,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		nullIfEmpty(user.Phone),
		user.PasswordHash,
		user.Role,
		user.Status,
		user.EmailVerified,
		user.PhoneVerified,
		user.LoginAttempts,
		nullIfEmpty(user.AvatarURL),
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanUser(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	return r.scanUser(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		nullIfEmpty(user.Phone),
		nullIfEmpty(user.AvatarURL),
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, passwordHash, at)
	return err
}

func (r *PgUserRepository) SetEmailVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

func (r *PgUserRepository) SetPhoneVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET phone_verified = TRUE, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

// RecordFailedLogin incrementa el contador en una sola sentencia para no
// perder actualizaciones entre intentos concurrentes.
func (r *PgUserRepository) RecordFailedLogin(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET login_attempts = login_attempts + 1, last_failed_login_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

func (r *PgUserRepository) ResetLoginAttempts(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET login_attempts = 0, last_failed_login_at = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgUserRepository) scanUser(row rowScanner) (domain.User, error) {
	var (
		u         domain.User
		phone     *string
		avatarURL *string
	)
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&phone,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.EmailVerified,
		&u.PhoneVerified,
		&u.LoginAttempts,
		&u.LastFailedLoginAt,
		&avatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}
	return u, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
