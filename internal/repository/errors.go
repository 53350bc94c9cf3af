package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConflict is returned when a unique constraint is violated
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a foreign key points nowhere
	ErrInvalidReference = errors.New("invalid reference")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// wrapPgError maps constraint violations to sentinel errors. The pg error
// stays in the chain.
func wrapPgError(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("failed to %s: %w: %w", action, ErrConflict, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("failed to %s: %w: %w", action, ErrInvalidReference, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
