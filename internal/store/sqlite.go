// Package store provides storage backends for vtubot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/mattn/go-sqlite3"
	"github.com/sregle/vtubot/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetSession retrieves the session stored for a normalized phone.
func (s *SQLiteStore) GetSession(phone string) (*models.Session, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE session_key = ?`, SessionKey(phone)).Scan(&payload)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to decode session payload: %w", err)
	}
	return &session, nil
}

// SaveSession stores or replaces the session for its phone.
func (s *SQLiteStore) SaveSession(session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "phone", session.Phone)
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (session_key, phone, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		SessionKey(session.Phone), session.Phone, string(payload), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "phone", session.Phone)
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "phone", session.Phone, "step", session.Step)
	return nil
}

// DeleteSession removes the session for a phone.
func (s *SQLiteStore) DeleteSession(phone string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_key = ?`, SessionKey(phone))
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "phone", phone)
	return nil
}

// DeleteSessionsIdleSince removes sessions not updated since cutoff.
func (s *SQLiteStore) DeleteSessionsIdleSince(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore DeleteSessionsIdleSince failed", "error", err)
		return 0, fmt.Errorf("failed to sweep idle sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("SQLiteStore swept idle sessions", "count", n)
	}
	return n, nil
}

const userColumns = `id, username, email, display_name, phone, hashed_password, hashed_pin, wallet_json, created_at`

func (s *SQLiteStore) getUserWhere(where string, arg interface{}) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	return scanUser(row)
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	return s.getUserWhere(`id = ?`, id)
}

// GetUserByUsername retrieves a user by login name.
func (s *SQLiteStore) GetUserByUsername(username string) (*models.User, error) {
	return s.getUserWhere(`username = ?`, username)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(email string) (*models.User, error) {
	return s.getUserWhere(`email = ?`, email)
}

// GetUserByPhone retrieves a user by normalized phone.
func (s *SQLiteStore) GetUserByPhone(phone string) (*models.User, error) {
	return s.getUserWhere(`phone = ?`, phone)
}

// FindUserByWalletBlob scans wallet JSON blobs for a substring.
func (s *SQLiteStore) FindUserByWalletBlob(fragment string) (*models.User, error) {
	if fragment == "" {
		return nil, nil
	}
	return s.getUserWhere(`wallet_json LIKE ?`, "%"+fragment+"%")
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(user models.User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.DisplayName, user.Phone,
		user.HashedPassword, user.HashedPIN, string(walletJSON), user.CreatedAt)
	if err != nil {
		if dup := sqliteDuplicateUser(err); dup != nil {
			slog.Warn("SQLiteStore CreateUser duplicate", "error", dup, "username", user.Username)
			return fmt.Errorf("failed to insert user %s: %w", user.Username, dup)
		}
		slog.Error("SQLiteStore CreateUser failed", "error", err, "username", user.Username)
		return fmt.Errorf("failed to insert user %s: %w", user.Username, err)
	}
	slog.Debug("SQLiteStore CreateUser succeeded", "id", user.ID, "username", user.Username)
	return nil
}

// sqliteDuplicateUser maps a unique-constraint violation on the users table
// to the duplicate sentinel for the offending column, or nil for any other
// error. SQLite names the columns in the constraint message.
func sqliteDuplicateUser(err error) error {
	var serr sqlite3.Error
	if !errors.As(err, &serr) || serr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	msg := serr.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return models.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return models.ErrDuplicateEmail
	case strings.Contains(msg, "users.phone"):
		return models.ErrDuplicatePhone
	}
	return nil
}

// UpdateUser replaces the mutable fields of an existing user.
func (s *SQLiteStore) UpdateUser(user models.User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE users SET username = ?, email = ?, display_name = ?, phone = ?,
			hashed_password = ?, hashed_pin = ?, wallet_json = ?
		WHERE id = ?`,
		user.Username, user.Email, user.DisplayName, user.Phone,
		user.HashedPassword, user.HashedPIN, string(walletJSON), user.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateUser failed", "error", err, "id", user.ID)
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	slog.Debug("SQLiteStore UpdateUser succeeded", "id", user.ID)
	return nil
}

// GetServicesCache retrieves the cached provider catalog, if any.
func (s *SQLiteStore) GetServicesCache() (*models.ServicesCache, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM services_cache WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetServicesCache failed", "error", err)
		return nil, fmt.Errorf("failed to query services cache: %w", err)
	}
	var cache models.ServicesCache
	if err := json.Unmarshal([]byte(payload), &cache); err != nil {
		slog.Error("SQLiteStore GetServicesCache unmarshal failed", "error", err)
		return nil, fmt.Errorf("failed to decode services cache: %w", err)
	}
	return &cache, nil
}

// SaveServicesCache stores the provider catalog snapshot.
func (s *SQLiteStore) SaveServicesCache(cache models.ServicesCache) error {
	payload, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to encode services cache: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO services_cache (id, payload, fetched_at)
		VALUES (1, ?, ?)`, string(payload), cache.FetchedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveServicesCache failed", "error", err)
		return fmt.Errorf("failed to save services cache: %w", err)
	}
	slog.Debug("SQLiteStore SaveServicesCache succeeded", "source", cache.Source)
	return nil
}

// ListManualPlans returns admin-curated plans for a kind and network/provider.
func (s *SQLiteStore) ListManualPlans(kind, discriminator string) ([]models.Plan, error) {
	rows, err := s.db.Query(`
		SELECT plan_code, kind, provider, name, amount FROM manual_plans
		WHERE kind = ? AND provider = ? ORDER BY id`, kind, discriminator)
	if err != nil {
		slog.Error("SQLiteStore ListManualPlans failed", "error", err, "kind", kind)
		return nil, fmt.Errorf("failed to query manual plans: %w", err)
	}
	defer rows.Close()
	return collectManualPlans(rows)
}

// AddManualPlan inserts an admin-curated plan.
func (s *SQLiteStore) AddManualPlan(plan models.Plan) error {
	_, err := s.db.Exec(`
		INSERT INTO manual_plans (plan_code, kind, provider, name, amount)
		VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.Kind, manualDiscriminator(plan), plan.Name, plan.Amount)
	if err != nil {
		slog.Error("SQLiteStore AddManualPlan failed", "error", err, "plan", plan.ID)
		return fmt.Errorf("failed to insert manual plan %s: %w", plan.ID, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
