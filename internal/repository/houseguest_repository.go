package repository

import (
	"context"
	"errors"
	"fmt"

	"bb-fantasy/internal/domain"
	"bb-fantasy/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgHouseguestRepository struct {
	db *database.PostgresDB
}

func NewHouseguestRepository(db *database.PostgresDB) *PgHouseguestRepository {
	return &PgHouseguestRepository{db: db}
}

const houseguestColumns = `
	id, slug, first_name, last_name, COALESCE(photo_url, ''), COALESCE(bio, ''),
	status, eviction_week, eviction_vote,
	COALESCE(on_the_block_weeks, '{}'), COALESCE(hoh_wins, '{}'),
	COALESCE(pov_wins, '{}'), COALESCE(blockbuster_wins, '{}'),
	final_placement, created_at, updated_at`

func scanHouseguest(row pgx.Row) (*domain.Houseguest, error) {
	var (
		hg           domain.Houseguest
		evictionWeek *int
		evictionVote *string
		placement    *string
	)
	err := row.Scan(
		&hg.ID,
		&hg.Slug,
		&hg.FirstName,
		&hg.LastName,
		&hg.PhotoURL,
		&hg.Bio,
		&hg.Status,
		&evictionWeek,
		&evictionVote,
		&hg.OnTheBlockWeeks,
		&hg.Wins.HOH,
		&hg.Wins.POV,
		&hg.Wins.Blockbuster,
		&placement,
		&hg.CreatedAt,
		&hg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if evictionWeek != nil {
		hg.Eviction = &domain.Eviction{Week: *evictionWeek}
		if evictionVote != nil {
			hg.Eviction.Vote = *evictionVote
		}
	}
	if placement != nil {
		p := domain.FinalPlacement(*placement)
		hg.FinalPlacement = &p
	}
	return &hg, nil
}

// List returns every houseguest, active first then by first name
func (r *PgHouseguestRepository) List(ctx context.Context) ([]*domain.Houseguest, error) {
	query := `SELECT ` + houseguestColumns + `
		FROM houseguests
		ORDER BY (status = 'EVICTED') ASC, first_name ASC`

	rows, err := r.db.Reader().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list houseguests: %w", err)
	}
	defer rows.Close()

	var houseguests []*domain.Houseguest
	for rows.Next() {
		hg, err := scanHouseguest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan houseguest: %w", err)
		}
		houseguests = append(houseguests, hg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating houseguests: %w", err)
	}

	return houseguests, nil
}

// GetByID retrieves a houseguest by ID
func (r *PgHouseguestRepository) GetByID(ctx context.Context, id string) (*domain.Houseguest, error) {
	query := `SELECT ` + houseguestColumns + ` FROM houseguests WHERE id = $1`

	hg, err := scanHouseguest(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get houseguest: %w", err)
	}
	return hg, nil
}

// GetBySlug retrieves a houseguest by slug
func (r *PgHouseguestRepository) GetBySlug(ctx context.Context, slug string) (*domain.Houseguest, error) {
	query := `SELECT ` + houseguestColumns + ` FROM houseguests WHERE slug = $1`

	hg, err := scanHouseguest(r.db.Reader().QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get houseguest by slug: %w", err)
	}
	return hg, nil
}

// Update writes the admin-editable fields of a houseguest
func (r *PgHouseguestRepository) Update(ctx context.Context, hg *domain.Houseguest) error {
	var (
		evictionWeek *int
		evictionVote *string
		placement    *string
	)
	if hg.Eviction != nil {
		evictionWeek = &hg.Eviction.Week
		if hg.Eviction.Vote != "" {
			evictionVote = &hg.Eviction.Vote
		}
	}
	if hg.FinalPlacement != nil {
		p := string(*hg.FinalPlacement)
		placement = &p
	}

	query := `
		UPDATE houseguests
		SET bio = NULLIF($2, ''), photo_url = NULLIF($3, ''), status = $4,
		    eviction_week = $5, eviction_vote = $6, final_placement = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		hg.ID,
		hg.Bio,
		hg.PhotoURL,
		string(hg.Status),
		evictionWeek,
		evictionVote,
		placement,
	).Scan(&hg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("houseguest %s not found", hg.ID)
	}
	if err != nil {
		return wrapPgError(err, "update houseguest")
	}
	return nil
}

// UpsertBySlug inserts the roster, updating names and photos of existing slugs.
// Stats and status are never touched so reseeding mid-season is safe.
func (r *PgHouseguestRepository) UpsertBySlug(ctx context.Context, seeds []domain.SeedHouseguest) (int, error) {
	query := `
		INSERT INTO houseguests (id, slug, first_name, last_name, photo_url, bio, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), 'IN')
		ON CONFLICT (slug) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    photo_url = COALESCE(EXCLUDED.photo_url, houseguests.photo_url),
		    bio = COALESCE(houseguests.bio, EXCLUDED.bio),
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, seed := range seeds {
		batch.Queue(query, newID(), seed.Slug, seed.FirstName, seed.LastName, seed.PhotoURL, seed.Bio)
	}

	count := 0
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range seeds {
			tag, err := results.Exec()
			if err != nil {
				return err
			}
			count += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, wrapPgError(err, "seed houseguests")
	}
	return count, nil
}

// ApplyStats stores derived stats. Eviction columns are written for
// houseguests whose eviction is recorded on a week, and reset for those
// marked ClearEviction.
func (r *PgHouseguestRepository) ApplyStats(ctx context.Context, stats []domain.HouseguestStats) error {
	statsQuery := `
		UPDATE houseguests
		SET hoh_wins = $2, pov_wins = $3, blockbuster_wins = $4,
		    on_the_block_weeks = $5, updated_at = NOW()
		WHERE id = $1
	`
	evictionQuery := `
		UPDATE houseguests
		SET status = 'EVICTED', eviction_week = $2, eviction_vote = NULLIF($3, '')
		WHERE id = $1
	`
	clearQuery := `
		UPDATE houseguests
		SET status = 'IN', eviction_week = NULL, eviction_vote = NULL
		WHERE id = $1
	`

	batch := &pgx.Batch{}
	for _, st := range stats {
		batch.Queue(statsQuery, st.HouseguestID, st.HOHWins, st.POVWins, st.BlockbusterWins, st.OnTheBlockWeeks)
		switch {
		case st.Eviction != nil:
			batch.Queue(evictionQuery, st.HouseguestID, st.Eviction.Week, st.Eviction.Vote)
		case st.ClearEviction:
			batch.Queue(clearQuery, st.HouseguestID)
		}
	}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to apply houseguest stats: %w", err)
	}
	return nil
}

// CountExisting returns how many of ids exist
func (r *PgHouseguestRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM houseguests WHERE id = ANY($1)`, ids,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count houseguests: %w", err)
	}
	return count, nil
}
