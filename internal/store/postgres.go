// Package store provides storage backends for vtubot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/sregle/vtubot/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetSession retrieves the session stored for a normalized phone.
func (s *PostgresStore) GetSession(phone string) (*models.Session, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE session_key = $1`, SessionKey(phone)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to decode session payload: %w", err)
	}
	return &session, nil
}

// SaveSession stores or replaces the session for its phone.
func (s *PostgresStore) SaveSession(session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "phone", session.Phone)
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (session_key, phone, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_key) DO UPDATE SET
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		SessionKey(session.Phone), session.Phone, string(payload), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "phone", session.Phone)
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "phone", session.Phone, "step", session.Step)
	return nil
}

// DeleteSession removes the session for a phone.
func (s *PostgresStore) DeleteSession(phone string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_key = $1`, SessionKey(phone))
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteSessionsIdleSince removes sessions not updated since cutoff.
func (s *PostgresStore) DeleteSessionsIdleSince(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore DeleteSessionsIdleSince failed", "error", err)
		return 0, fmt.Errorf("failed to sweep idle sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("PostgresStore swept idle sessions", "count", n)
	}
	return n, nil
}

func (s *PostgresStore) getUserWhere(where string, arg interface{}) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	return scanUser(row)
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	return s.getUserWhere(`id = $1`, id)
}

// GetUserByUsername retrieves a user by login name.
func (s *PostgresStore) GetUserByUsername(username string) (*models.User, error) {
	return s.getUserWhere(`username = $1`, username)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(email string) (*models.User, error) {
	return s.getUserWhere(`email = $1`, email)
}

// GetUserByPhone retrieves a user by normalized phone.
func (s *PostgresStore) GetUserByPhone(phone string) (*models.User, error) {
	return s.getUserWhere(`phone = $1`, phone)
}

// FindUserByWalletBlob scans wallet JSON blobs for a substring.
func (s *PostgresStore) FindUserByWalletBlob(fragment string) (*models.User, error) {
	if fragment == "" {
		return nil, nil
	}
	return s.getUserWhere(`wallet_json LIKE $1`, "%"+fragment+"%")
}

// CreateUser inserts a new user record.
func (s *PostgresStore) CreateUser(user models.User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Username, user.Email, user.DisplayName, user.Phone,
		user.HashedPassword, user.HashedPIN, string(walletJSON), user.CreatedAt)
	if err != nil {
		if dup := pqDuplicateUser(err); dup != nil {
			slog.Warn("PostgresStore CreateUser duplicate", "error", dup, "username", user.Username)
			return fmt.Errorf("failed to insert user %s: %w", user.Username, dup)
		}
		slog.Error("PostgresStore CreateUser failed", "error", err, "username", user.Username)
		return fmt.Errorf("failed to insert user %s: %w", user.Username, err)
	}
	return nil
}

// pqDuplicateUser maps a unique_violation on the users table to the
// duplicate sentinel for the offending constraint, or nil for any other
// error.
func pqDuplicateUser(err error) error {
	var perr *pq.Error
	if !errors.As(err, &perr) || perr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(perr.Constraint, "username"):
		return models.ErrDuplicateUsername
	case strings.Contains(perr.Constraint, "email"):
		return models.ErrDuplicateEmail
	case strings.Contains(perr.Constraint, "phone"):
		return models.ErrDuplicatePhone
	}
	return nil
}

// UpdateUser replaces the mutable fields of an existing user.
func (s *PostgresStore) UpdateUser(user models.User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE users SET username = $1, email = $2, display_name = $3, phone = $4,
			hashed_password = $5, hashed_pin = $6, wallet_json = $7
		WHERE id = $8`,
		user.Username, user.Email, user.DisplayName, user.Phone,
		user.HashedPassword, user.HashedPIN, string(walletJSON), user.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateUser failed", "error", err, "id", user.ID)
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// GetServicesCache retrieves the cached provider catalog, if any.
func (s *PostgresStore) GetServicesCache() (*models.ServicesCache, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM services_cache WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetServicesCache failed", "error", err)
		return nil, fmt.Errorf("failed to query services cache: %w", err)
	}
	var cache models.ServicesCache
	if err := json.Unmarshal([]byte(payload), &cache); err != nil {
		return nil, fmt.Errorf("failed to decode services cache: %w", err)
	}
	return &cache, nil
}

// SaveServicesCache stores the provider catalog snapshot.
func (s *PostgresStore) SaveServicesCache(cache models.ServicesCache) error {
	payload, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to encode services cache: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO services_cache (id, payload, fetched_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
		string(payload), cache.FetchedAt)
	if err != nil {
		slog.Error("PostgresStore SaveServicesCache failed", "error", err)
		return fmt.Errorf("failed to save services cache: %w", err)
	}
	return nil
}

// ListManualPlans returns admin-curated plans for a kind and network/provider.
func (s *PostgresStore) ListManualPlans(kind, discriminator string) ([]models.Plan, error) {
	rows, err := s.db.Query(`
		SELECT plan_code, kind, provider, name, amount FROM manual_plans
		WHERE kind = $1 AND provider = $2 ORDER BY id`, kind, discriminator)
	if err != nil {
		slog.Error("PostgresStore ListManualPlans failed", "error", err, "kind", kind)
		return nil, fmt.Errorf("failed to query manual plans: %w", err)
	}
	defer rows.Close()
	return collectManualPlans(rows)
}

// AddManualPlan inserts an admin-curated plan.
func (s *PostgresStore) AddManualPlan(plan models.Plan) error {
	_, err := s.db.Exec(`
		INSERT INTO manual_plans (plan_code, kind, provider, name, amount)
		VALUES ($1, $2, $3, $4, $5)`,
		plan.ID, plan.Kind, manualDiscriminator(plan), plan.Name, plan.Amount)
	if err != nil {
		slog.Error("PostgresStore AddManualPlan failed", "error", err, "plan", plan.ID)
		return fmt.Errorf("failed to insert manual plan %s: %w", plan.ID, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
