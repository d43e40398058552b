package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
)

// SessionRepository persiste sesiones emitidas en login.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (domain.Session, error)
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
	Touch(ctx context.Context, id string, at time.Time) error
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (
			id, user_id, token, revoked, ip_address, user_agent,
			last_accessed_at, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.Revoked,
		session.IPAddress,
		nullIfEmpty(session.UserAgent),
		session.LastAccessedAt,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT id, user_id, token, revoked, ip_address, user_agent,
		       last_accessed_at, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`
	var (
		s         domain.Session
		userAgent *string
	)
	err := db.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.Revoked,
		&s.IPAddress,
		&userAgent,
		&s.LastAccessedAt,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	if userAgent != nil {
		s.UserAgent = *userAgent
	}
	return s, nil
}

// RevokeAllForUser revoca en bloque; usado en logout.
func (r *PgSessionRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE sessions
		SET revoked = TRUE, last_accessed_at = $2
		WHERE user_id = $1 AND revoked = FALSE
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, userID, at)
	return err
}

func (r *PgSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE sessions
		SET last_accessed_at = $2
		WHERE id = $1
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}
