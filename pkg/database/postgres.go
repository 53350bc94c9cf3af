package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options configures the connection pools
type Options struct {
	URL         string
	ReadURL     string // optional read replica
	Environment string
	AppName     string
}

type PostgresDB struct {
	Pool *pgxpool.Pool
	// ReadPool serves read-only queries. Falls back to Pool when no replica is configured.
	ReadPool *pgxpool.Pool
}

// NewPostgresDB creates the write pool and, if configured, a read replica pool
func NewPostgresDB(ctx context.Context, opts Options) (*PostgresDB, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	pool, err := newPool(ctx, opts.URL, opts)
	if err != nil {
		return nil, err
	}

	db := &PostgresDB{Pool: pool, ReadPool: pool}
	if opts.ReadURL != "" && opts.ReadURL != opts.URL {
		readPool, err := newPool(ctx, opts.ReadURL, opts)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect read replica: %w", err)
		}
		db.ReadPool = readPool
	}

	return db, nil
}

func newPool(ctx context.Context, url string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Production sizing for high concurrency, smaller pool elsewhere
	if opts.Environment == "production" {
		config.MaxConns = 50
		config.MinConns = 5
	} else {
		config.MaxConns = 10
		config.MinConns = 2
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.ConnectTimeout = time.Second * 5

	// Disable prepared statement cache to stay compatible with transaction poolers
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if opts.AppName != "" {
		config.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Close closes the database connection pools
func (db *PostgresDB) Close() {
	if db.ReadPool != nil && db.ReadPool != db.Pool {
		db.ReadPool.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks the database connection
func (db *PostgresDB) Health(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.Pool.Ping(ctx)
}

// Reader returns the pool used for read-only queries
func (db *PostgresDB) Reader() *pgxpool.Pool {
	if db.ReadPool != nil {
		return db.ReadPool
	}
	return db.Pool
}

// WithTx runs fn inside a transaction on the write pool
func (db *PostgresDB) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.Pool, fn)
}
