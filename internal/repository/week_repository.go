package repository

import (
	"context"
	"errors"
	"fmt"

	"bb-fantasy/internal/domain"
	"bb-fantasy/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgWeekRepository struct {
	db *database.PostgresDB
}

func NewWeekRepository(db *database.PostgresDB) *PgWeekRepository {
	return &PgWeekRepository{db: db}
}

const weekColumns = `
	id, week, hoh_competition, hoh_winner_id, COALESCE(nominees, '{}'),
	pov_competition, pov_winner_id, pov_used, pov_removed_nominee_id,
	pov_replacement_id, blockbuster_competition, blockbuster_winner_id,
	evicted_nominee_id, eviction_vote, created_at, updated_at`

func scanWeek(row pgx.Row) (*domain.Week, error) {
	var w domain.Week
	err := row.Scan(
		&w.ID,
		&w.Number,
		&w.HOHCompetition,
		&w.HOHWinnerID,
		&w.Nominees,
		&w.POVCompetition,
		&w.POVWinnerID,
		&w.POVUsed,
		&w.POVRemovedNomineeID,
		&w.POVReplacementID,
		&w.BlockbusterCompetition,
		&w.BlockbusterWinnerID,
		&w.EvictedNomineeID,
		&w.EvictionVote,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns all weeks ordered by number
func (r *PgWeekRepository) List(ctx context.Context, desc bool) ([]*domain.Week, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	query := `SELECT ` + weekColumns + ` FROM weeks ORDER BY week ` + order

	rows, err := r.db.Reader().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	defer rows.Close()

	weeks := make([]*domain.Week, 0)
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		weeks = append(weeks, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weeks: %w", err)
	}

	return weeks, nil
}

// GetByNumber retrieves a week by its number
func (r *PgWeekRepository) GetByNumber(ctx context.Context, number int) (*domain.Week, error) {
	query := `SELECT ` + weekColumns + ` FROM weeks WHERE week = $1`

	w, err := scanWeek(r.db.Pool.QueryRow(ctx, query, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week: %w", err)
	}
	return w, nil
}

// CreateNext creates the week after the latest one. Two concurrent calls
// race on the unique week number and one gets ErrConflict.
func (r *PgWeekRepository) CreateNext(ctx context.Context) (*domain.Week, error) {
	query := `
		INSERT INTO weeks (id, week, nominees)
		SELECT $1, COALESCE(MAX(week), 0) + 1, '{}' FROM weeks
		RETURNING ` + weekColumns

	w, err := scanWeek(r.db.Pool.QueryRow(ctx, query, newID()))
	if err != nil {
		return nil, wrapPgError(err, "create week")
	}
	return w, nil
}

// Update replaces the result columns of a week
func (r *PgWeekRepository) Update(ctx context.Context, w *domain.Week) error {
	nominees := w.Nominees
	if nominees == nil {
		nominees = []string{}
	}

	query := `
		UPDATE weeks
		SET hoh_competition = $2, hoh_winner_id = $3, nominees = $4,
		    pov_competition = $5, pov_winner_id = $6, pov_used = $7,
		    pov_removed_nominee_id = $8, pov_replacement_id = $9,
		    blockbuster_competition = $10, blockbuster_winner_id = $11,
		    evicted_nominee_id = $12, eviction_vote = $13, updated_at = NOW()
		WHERE week = $1
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		w.Number,
		w.HOHCompetition,
		w.HOHWinnerID,
		nominees,
		w.POVCompetition,
		w.POVWinnerID,
		w.POVUsed,
		w.POVRemovedNomineeID,
		w.POVReplacementID,
		w.BlockbusterCompetition,
		w.BlockbusterWinnerID,
		w.EvictedNomineeID,
		w.EvictionVote,
	).Scan(&w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("week %d not found", w.Number)
	}
	if err != nil {
		return wrapPgError(err, "update week")
	}
	return nil
}

// CurrentWeek returns the highest week number, or 0
func (r *PgWeekRepository) CurrentWeek(ctx context.Context) (int, error) {
	var current int
	err := r.db.Reader().QueryRow(ctx, `SELECT COALESCE(MAX(week), 0) FROM weeks`).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("failed to get current week: %w", err)
	}
	return current, nil
}
