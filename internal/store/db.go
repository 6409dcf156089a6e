package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// DB wraps a SQLite database connection for opportunity storage.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	} else {
		dsn = ":memory:?_pragma=foreign_keys(ON)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set connection pool to 1 for SQLite
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &DB{db: sqlDB, now: time.Now}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) unixNow() int64 {
	return d.now().Unix()
}

func (d *DB) migrate() error {
	var version int
	err := d.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := d.migrateV1(); err != nil {
			return err
		}
	}

	_, err = d.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	if err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}

	return nil
}

// migrateV1 creates the cluster schema. clusters.seq is the storage identity
// the vector row is keyed on; clusters.id is the public UUID.
func (d *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS clusters (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			solution_idea TEXT,
			post_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'new',
			last_seen_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_demand ON clusters(post_count DESC, last_seen_at DESC)`,
		`CREATE TABLE IF NOT EXISTS analyzed_posts (
			id TEXT PRIMARY KEY,
			cluster_id TEXT NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
			subreddit TEXT,
			title TEXT NOT NULL,
			body TEXT,
			url TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_cluster ON analyzed_posts(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON analyzed_posts(created_at)`,
		`CREATE TABLE IF NOT EXISTS cluster_vectors (
			cluster_seq INTEGER PRIMARY KEY REFERENCES clusters(seq) ON DELETE CASCADE,
			dims INTEGER NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			sources TEXT NOT NULL,
			heuristic_patterns TEXT NOT NULL,
			cluster_distance_threshold REAL NOT NULL,
			cron_ingest_enabled INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL
		)`,
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration statement: %w", err)
		}
	}

	return tx.Commit()
}
