package database

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite" // The pure Go SQLite driver
)

// Service is the central struct for managing all database interactions.
// It holds the connection to the tracker database and serializes write
// operations through a mutex, since SQLite allows only one writer at a time.
type Service struct {
	dbPath string

	db        *sql.DB
	writeLock sync.Mutex
}

// NewService creates and initializes a new database service.
// It opens the database connection and prepares the service for use.
func NewService(dbPath string) (*Service, error) {
	// `?_foreign_keys=on` is crucial for data integrity.
	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", dbPath, err)
	}

	// Ping the database to ensure the connection is alive.
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", dbPath, err)
	}

	return &Service{
		dbPath: dbPath,
		db:     db,
	}, nil
}

// WriteToDB executes a write operation (INSERT, UPDATE, DELETE) on the database
// within a transaction, protected by a mutex to ensure serial access.
func (s *Service) WriteToDB(writeFunc func(tx *sql.Tx) error) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Execute the provided function. If it returns an error, rollback the transaction.
	if err := writeFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	// If the function was successful, commit the transaction.
	return tx.Commit()
}

// GetDB provides a direct, read-only connection to the database.
func (s *Service) GetDB() *sql.DB {
	return s.db
}

// Close safely closes the database connection when the application shuts down.
func (s *Service) Close() {
	s.db.Close()
	log.Println("Database connection closed.")
}

// InitDB sets up the schema for the tracker database if the tables don't exist.
// This is idempotent and safe to run on every application start.
func (s *Service) InitDB() error {
	// Use the Write function to ensure this is thread-safe on first run.
	return s.WriteToDB(func(tx *sql.Tx) error {
		// Accounts table: the authentication identity. password_hash is NULL
		// for Google-only accounts.
		_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);`)
		if err != nil {
			return err
		}

		// Invitations table: the authoritative record, keyed by lower-cased email.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS invitations (
				email TEXT PRIMARY KEY,
				role TEXT NOT NULL DEFAULT 'user', -- user, team_admin, admin
				team_id TEXT,
				invited_by TEXT NOT NULL,
				expires_at DATETIME NOT NULL,
				used INTEGER NOT NULL DEFAULT 0,
				used_at DATETIME,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);`)
		if err != nil {
			return err
		}

		// Public mirror of invitations, readable by the registration form
		// before the caller has an account. Deleted after registration.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS invitations_public (
				email TEXT PRIMARY KEY,
				role TEXT NOT NULL DEFAULT 'user',
				team_name TEXT,
				expires_at DATETIME NOT NULL,
				used INTEGER NOT NULL DEFAULT 0
			);`)
		if err != nil {
			return err
		}

		// Usernames registry: row existence under the lower-cased name means taken.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS usernames (
				username TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);`)
		if err != nil {
			return err
		}

		// Teams table.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS teams (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL,
				is_active INTEGER NOT NULL DEFAULT 1,
				member_count INTEGER NOT NULL DEFAULT 0,
				total_miles REAL NOT NULL DEFAULT 0,
				total_rides INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
			);`)
		if err != nil {
			return err
		}

		// Rider profiles. The id is the same as the account id.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				user_name TEXT NOT NULL,
				email TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				team_id TEXT,
				team_name TEXT,
				total_miles REAL NOT NULL DEFAULT 0,
				total_rides INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				joined_team_at DATETIME,
				FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE SET NULL
			);`)
		if err != nil {
			return err
		}

		// Team membership (many-to-many, with an admin flag).
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS team_members (
				team_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (team_id, user_id),
				FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
			);`)
		if err != nil {
			return err
		}

		// Mile logs: immutable ride records.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS mile_logs (
				id INTEGER PRIMARY KEY,
				user_id TEXT NOT NULL,
				user_name TEXT NOT NULL,
				team_id TEXT,
				team_name TEXT,
				miles REAL NOT NULL,
				ride_date TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);`)
		if err != nil {
			return err
		}

		// Weekly per-rider stats, merged with increments per mile log.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS weekly_stats (
				user_id TEXT NOT NULL,
				week_id TEXT NOT NULL,
				user_name TEXT NOT NULL,
				team_id TEXT,
				weekly_miles REAL NOT NULL DEFAULT 0,
				weekly_rides INTEGER NOT NULL DEFAULT 0,
				last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, week_id)
			);`)
		if err != nil {
			return err
		}

		// Weekly per-team stats.
		_, err = tx.Exec(`
			CREATE TABLE IF NOT EXISTS weekly_team_stats (
				team_id TEXT NOT NULL,
				week_id TEXT NOT NULL,
				team_name TEXT NOT NULL,
				weekly_miles REAL NOT NULL DEFAULT 0,
				weekly_rides INTEGER NOT NULL DEFAULT 0,
				member_count INTEGER NOT NULL DEFAULT 0,
				last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (team_id, week_id)
			);`)
		if err != nil {
			return err
		}

		return nil
	})
}
