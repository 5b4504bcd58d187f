// Package database provides SQLite database initialization and management.
package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CurrentSchemaVersion tracks the database schema version for migrations.
const CurrentSchemaVersion = 2

// Schema defines the netcube database schema.
// Design principles:
// 1. Kernel is truth for live state - the DB stores desired configuration only
// 2. Credentials stay in the DB, never in API responses or logs
// 3. Created timestamps on all tables
const Schema = `
-- =============================================================================
-- USERS: Authentication
-- =============================================================================
CREATE TABLE IF NOT EXISTS users (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    username        TEXT UNIQUE NOT NULL,
    password_hash   TEXT NOT NULL,
    role            TEXT DEFAULT 'admin',           -- 'admin' | 'readonly'
    last_login      DATETIME,

    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

-- =============================================================================
-- WIFI_PROFILES: Saved wireless networks
-- =============================================================================
CREATE TABLE IF NOT EXISTS wifi_profiles (
    id              TEXT PRIMARY KEY,               -- UUID
    ssid            TEXT UNIQUE NOT NULL,
    password        TEXT DEFAULT '',                -- Stored, never returned by the API
    security        TEXT DEFAULT 'wpa2',
    active          BOOLEAN DEFAULT FALSE,          -- At most one row active

    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wifi_profiles_ssid ON wifi_profiles(ssid);

-- =============================================================================
-- STATIC_IP_PROFILES: Saved per-interface static configurations
-- =============================================================================
CREATE TABLE IF NOT EXISTS static_ip_profiles (
    id              TEXT PRIMARY KEY,               -- UUID
    interface       TEXT UNIQUE NOT NULL,
    address         TEXT NOT NULL,
    prefix_len      INTEGER NOT NULL,
    gateway         TEXT DEFAULT '',
    dns             TEXT DEFAULT '[]',              -- JSON array of server addresses
    enabled         BOOLEAN DEFAULT FALSE,

    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- =============================================================================
-- SYSTEM_STATE: System-wide state and flags
-- =============================================================================
CREATE TABLE IF NOT EXISTS system_state (
    key             TEXT PRIMARY KEY,
    value           TEXT NOT NULL,
    updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SeedData contains initial data for the database.
const SeedData = `
INSERT OR IGNORE INTO system_state (key, value) VALUES
    ('schema_version', '1'),
    ('first_boot', '');
`

// InitSchema initializes the database schema.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	log.Info().Msg("Initializing database schema...")

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec(SeedData); err != nil {
		return fmt.Errorf("failed to seed data: %w", err)
	}

	log.Info().Msg("Database schema initialized successfully")
	return nil
}

// GetSchemaVersion returns the current schema version from the database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT CAST(value AS INTEGER) FROM system_state WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// SetSchemaVersion updates the schema version in the database.
func SetSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec("INSERT OR REPLACE INTO system_state (key, value, updated_at) VALUES ('schema_version', ?, CURRENT_TIMESTAMP)", version)
	return err
}

// GetSystemState retrieves a system state value by key.
func GetSystemState(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM system_state WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetSystemState sets a system state value.
func SetSystemState(db *sql.DB, key, value string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO system_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)", key, value)
	return err
}
