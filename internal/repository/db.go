package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tiers (
			name            TEXT PRIMARY KEY,
			level           INTEGER NOT NULL,
			sales_threshold TEXT NOT NULL DEFAULT '0',
			percentile      REAL NOT NULL DEFAULT 0,
			commission_rate TEXT NOT NULL DEFAULT '0'
		)`,

		`CREATE TABLE IF NOT EXISTS artists (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT UNIQUE NOT NULL,
			legal_name         TEXT NOT NULL,
			application_status TEXT NOT NULL,
			tier_name          TEXT REFERENCES tiers(name),
			total_sales        TEXT NOT NULL DEFAULT '0',
			total_commission   TEXT NOT NULL DEFAULT '0',
			wallet_balance     TEXT NOT NULL DEFAULT '0',
			tier_updated_at    DATETIME,
			created_at         DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artists_status ON artists(application_status)`,

		`CREATE TABLE IF NOT EXISTS artworks (
			id              TEXT PRIMARY KEY,
			artist_id       TEXT NOT NULL REFERENCES artists(id),
			title           TEXT NOT NULL,
			price           TEXT NOT NULL DEFAULT '0',
			product_id      TEXT UNIQUE NOT NULL,
			product_type_id TEXT NOT NULL,
			available       INTEGER NOT NULL DEFAULT 1,
			created_at      DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artworks_artist ON artworks(artist_id)`,

		`CREATE TABLE IF NOT EXISTS referral_links (
			id         TEXT PRIMARY KEY,
			artist_id  TEXT NOT NULL REFERENCES artists(id),
			product_id TEXT NOT NULL,
			code       TEXT UNIQUE NOT NULL,
			expires_at DATETIME NOT NULL,
			used       INTEGER NOT NULL DEFAULT 0,
			times_used INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_links_pair ON referral_links(artist_id, product_id)`,

		`CREATE TABLE IF NOT EXISTS sold_lines (
			id              TEXT PRIMARY KEY,
			order_id        TEXT NOT NULL,
			product_id      TEXT NOT NULL,
			product_type_id TEXT NOT NULL,
			unit_price      TEXT NOT NULL,
			quantity        INTEGER NOT NULL DEFAULT 1,
			referral_code   TEXT,
			status          TEXT NOT NULL,
			occurred_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sold_lines_product ON sold_lines(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sold_lines_status ON sold_lines(status)`,

		`CREATE TABLE IF NOT EXISTS commissions (
			id            TEXT PRIMARY KEY,
			artist_id     TEXT NOT NULL REFERENCES artists(id),
			order_line_id TEXT NOT NULL,
			amount        TEXT NOT NULL,
			rate          TEXT NOT NULL,
			source        TEXT NOT NULL,
			status        TEXT NOT NULL,
			created_at    DATETIME NOT NULL,
			paid_at       DATETIME,
			UNIQUE(order_line_id, artist_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commissions_artist ON commissions(artist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_commissions_status ON commissions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_commissions_line ON commissions(order_line_id)`,

		`CREATE TABLE IF NOT EXISTS commission_audit (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			commission_id TEXT NOT NULL,
			artist_id     TEXT NOT NULL,
			action        TEXT NOT NULL,
			amount        TEXT NOT NULL,
			logged_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commission_audit_artist ON commission_audit(artist_id)`,

		`CREATE TABLE IF NOT EXISTS commission_settings (
			id                         INTEGER PRIMARY KEY CHECK (id = 1),
			commission_period_days     INTEGER NOT NULL,
			referral_rate              TEXT NOT NULL DEFAULT '0',
			product_type_commissions   TEXT NOT NULL DEFAULT '{}',
			tier_commissions           TEXT NOT NULL DEFAULT '{}',
			tier_update_frequency_days INTEGER NOT NULL DEFAULT 30,
			use_percentile             INTEGER NOT NULL DEFAULT 0,
			last_tier_update           DATETIME
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
