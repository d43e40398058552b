package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/db"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
)

// TokenRepository es el libro mayor de tokens de verificación y OTP.
// Un token es válido si used = false y expires_at > now; las búsquedas
// devuelven pgx.ErrNoRows cuando no hay token válido.
type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	InvalidateUnused(ctx context.Context, userID, tokenType string, at time.Time) error
	FindValidByToken(ctx context.Context, token, tokenType string, now time.Time) (domain.VerificationToken, error)
	FindValidForUser(ctx context.Context, userID, token, tokenType string, now time.Time) (domain.VerificationToken, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

// PgTokenRepository implementa TokenRepository usando pgxpool.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

const tokenColumns = `
	id, user_id, token, type, ip_address, expires_at, used, used_at, created_at
`

func (r *PgTokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	const query = `
		INSERT INTO verification_tokens (
			id, user_id, token, type, ip_address, expires_at, used, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.Type,
		nullIfEmpty(token.IPAddress),
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	return err
}

// InvalidateUnused marca como usados todos los tokens vivos del mismo tipo.
// Se llama antes de emitir uno nuevo: a lo sumo un token vigente por
// (usuario, tipo).
func (r *PgTokenRepository) InvalidateUnused(ctx context.Context, userID, tokenType string, at time.Time) error {
	const query = `
		UPDATE verification_tokens
		SET used = TRUE, used_at = $3
		WHERE user_id = $1 AND type = $2 AND used = FALSE
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, userID, tokenType, at)
	return err
}

func (r *PgTokenRepository) FindValidByToken(ctx context.Context, token, tokenType string, now time.Time) (domain.VerificationToken, error) {
	const query = `
		SELECT ` + tokenColumns + `
		FROM verification_tokens
		WHERE token = $1 AND type = $2 AND used = FALSE AND expires_at > $3
	`
	return r.scanToken(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, token, tokenType, now))
}

func (r *PgTokenRepository) FindValidForUser(ctx context.Context, userID, token, tokenType string, now time.Time) (domain.VerificationToken, error) {
	const query = `
		SELECT ` + tokenColumns + `
		FROM verification_tokens
		WHERE user_id = $1 AND token = $2 AND type = $3 AND used = FALSE AND expires_at > $4
	`
	return r.scanToken(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, userID, token, tokenType, now))
}

func (r *PgTokenRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE verification_tokens
		SET used = TRUE, used_at = $2
		WHERE id = $1
	`
	_, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, query, id, at)
	return err
}

func (r *PgTokenRepository) scanToken(row rowScanner) (domain.VerificationToken, error) {
	var (
		t  domain.VerificationToken
		ip *string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.Type,
		&ip,
		&t.ExpiresAt,
		&t.Used,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.VerificationToken{}, err
	}
	if ip != nil {
		t.IPAddress = *ip
	}
	return t, nil
}
