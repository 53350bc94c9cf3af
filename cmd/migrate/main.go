package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"bb-fantasy/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|seed|reset]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		n, err := seedHouseguests(ctx, conn)
		if err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Printf("✅ Seeded %d houseguests\n", n)

	case "reset":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		if _, err := seedHouseguests(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Database reset")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS picks CASCADE`,
		`DROP TABLE IF EXISTS sessions CASCADE`,
		`DROP TABLE IF EXISTS verification_tokens CASCADE`,
		`DROP TABLE IF EXISTS weeks CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
		`DROP TABLE IF EXISTS houseguests CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}
	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS houseguests (
			id TEXT PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			photo_url TEXT,
			bio TEXT,
			status TEXT NOT NULL DEFAULT 'IN' CHECK (status IN ('IN', 'EVICTED')),
			eviction_week INTEGER,
			eviction_vote TEXT,
			on_the_block_weeks INTEGER[] NOT NULL DEFAULT '{}',
			hoh_wins INTEGER[] NOT NULL DEFAULT '{}',
			pov_wins INTEGER[] NOT NULL DEFAULT '{}',
			blockbuster_wins INTEGER[] NOT NULL DEFAULT '{}',
			final_placement TEXT CHECK (final_placement IN ('WINNER', 'RUNNER_UP')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS weeks (
			id TEXT PRIMARY KEY,
			week INTEGER UNIQUE NOT NULL CHECK (week > 0),
			hoh_competition TEXT,
			hoh_winner_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			nominees TEXT[] NOT NULL DEFAULT '{}',
			pov_competition TEXT,
			pov_winner_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			pov_used BOOLEAN,
			pov_removed_nominee_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			pov_replacement_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			blockbuster_competition TEXT,
			blockbuster_winner_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			evicted_nominee_id TEXT REFERENCES houseguests(id) ON DELETE SET NULL,
			eviction_vote TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			photo_url TEXT,
			is_admin BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS picks (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			houseguest_id TEXT NOT NULL REFERENCES houseguests(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, houseguest_id)
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS verification_tokens (
			identifier TEXT NOT NULL,
			token TEXT UNIQUE NOT NULL,
			expires TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (identifier, token)
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (lower(username))`,
		`CREATE INDEX IF NOT EXISTS idx_picks_houseguest_id ON picks(houseguest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_tokens_expires ON verification_tokens(expires)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}
	return nil
}

// seedHouseguests inserts the season roster, leaving existing slugs untouched
func seedHouseguests(ctx context.Context, conn *pgx.Conn) (int, error) {
	query := `
		INSERT INTO houseguests (id, slug, first_name, last_name, photo_url, bio)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (slug) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, hg := range domain.SeasonRoster {
		batch.Queue(query, uuid.NewString(), hg.Slug, hg.FirstName, hg.LastName, hg.PhotoURL, hg.Bio)
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for _, hg := range domain.SeasonRoster {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert %s: %w", hg.Slug, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
			fmt.Printf("  Inserted: %s\n", hg.Slug)
		}
	}
	return inserted, nil
}

func getTableName(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
