package database

import (
	"context"
	"os"
	"time"

	l "github.com/noisersup/filestore-api/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sethvargo/go-retry"
)

type Database struct {
	pool *pgxpool.Pool // database connection
	log  *l.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS files (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		parent_id UUID NOT NULL,
		is_public BOOL NOT NULL DEFAULT false,
		local_path TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS files_user_parent_idx ON files (user_id, parent_id);`,
}

// Connects to database with provided data and returns database object.
// The initial dial is retried with bounded exponential backoff so a store
// that comes up slightly after us doesn't kill the process.
func ConnectDB(ctx context.Context, uri, database string, log *l.Logger) (*Database, error) {
	config, err := pgxpool.ParseConfig(os.ExpandEnv(uri))
	if err != nil {
		return nil, err
	}

	config.ConnConfig.Database = database

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(6, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.ConnectConfig(ctx, config)
		if err != nil {
			log.LogV("database not ready yet: %s", err.Error())
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	db := Database{pool: pool, log: log}

	if err = db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &db, nil
}

// Close database connection
// ( pool.Close alias )
func (db *Database) Close() {
	db.log.Log("Closing database...")
	db.pool.Close()
	db.log.Log("All database connections closed.")
}

func (db *Database) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) Alive(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}
