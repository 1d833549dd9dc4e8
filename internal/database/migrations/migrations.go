package migrations

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
}

// All returns the full migration list in version order. Migrations are
// compiled in rather than loaded from disk so the binary can be deployed
// on its own.
func All() []Migration {
	return []Migration{
		{
			Version: 1,
			Up: `
			CREATE TABLE IF NOT EXISTS goods_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				author TEXT NOT NULL DEFAULT '',
				date TEXT NOT NULL DEFAULT '',
				source_url TEXT NOT NULL UNIQUE,
				source_kind TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				trust_tier INTEGER NOT NULL DEFAULT 1,
				freshness_score INTEGER NOT NULL DEFAULT 0,
				rarity_score INTEGER NOT NULL DEFAULT 0,
				reliability_score INTEGER NOT NULL DEFAULT 0,
				total_score INTEGER NOT NULL DEFAULT 0,
				priority_label TEXT NOT NULL DEFAULT '',
				image_url TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_goods_records_feed_order
				ON goods_records(date DESC, created_at DESC);`,
		},
		{
			Version: 2,
			Up: `
			CREATE TABLE IF NOT EXISTS search_queue (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				query TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_search_queue_pending
				ON search_queue(status, created_at);`,
		},
		{
			Version: 3,
			Up: `
			CREATE TABLE IF NOT EXISTS targets (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				name_en TEXT,
				genre TEXT,
				comments TEXT,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB, migrations []Migration) error {
	// Create migrations table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	// Run pending migrations
	for _, migration := range migrations {
		if applied[migration.Version] {
			log.Debug().
				Int("version", migration.Version).
				Msg("Migration already applied, skipping")
			continue
		}

		log.Info().
			Int("version", migration.Version).
			Msg("Running migration")

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		// Execute migration
		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		// Record migration
		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Info().
			Int("version", migration.Version).
			Msg("Migration completed successfully")
	}

	return nil
}
