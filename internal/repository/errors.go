package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateKey señala una violación de unicidad (email o teléfono en uso).
var ErrDuplicateKey = errors.New("duplicate key")

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}
