package repository

import (
	"context"
	"errors"
	"fmt"

	"bb-fantasy/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgPickRepository struct {
	db *database.PostgresDB
}

func NewPickRepository(db *database.PostgresDB) *PgPickRepository {
	return &PgPickRepository{db: db}
}

// ListByUser returns the houseguest ids picked by a user
func (r *PgPickRepository) ListByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT houseguest_id FROM picks WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan picks: %w", err)
	}
	return ids, nil
}

// CreateForUser stores a user's picks in one transaction. The user row is
// locked so concurrent submissions cannot both succeed.
func (r *PgPickRepository) CreateForUser(ctx context.Context, userID string, houseguestIDs []string) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
			return err
		}

		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM picks WHERE user_id = $1`, userID).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return ErrConflict
		}

		rows := make([][]interface{}, 0, len(houseguestIDs))
		for _, id := range houseguestIDs {
			rows = append(rows, []interface{}{userID, id})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"picks"},
			[]string{"user_id", "houseguest_id"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("failed to create picks: %w", ErrConflict)
	}
	if err != nil {
		return wrapPgError(err, "create picks")
	}
	return nil
}
