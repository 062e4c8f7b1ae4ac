// Package store provides storage backends for vtubot.
//
// It persists dialogue sessions, user accounts, the services catalog cache,
// and manually curated plans. SQLite and PostgreSQL backends are provided
// for deployment, plus an in-memory store for tests and DSN-less runs.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sregle/vtubot/internal/models"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	// GetSession returns nil, nil when no session exists for the phone.
	GetSession(phone string) (*models.Session, error)
	SaveSession(session models.Session) error
	DeleteSession(phone string) error
	// DeleteSessionsIdleSince removes sessions not updated since cutoff.
	DeleteSessionsIdleSince(cutoff time.Time) (int64, error)

	GetUser(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByPhone(phone string) (*models.User, error)
	// FindUserByWalletBlob scans the stored wallet JSON for a substring.
	// It backs the legacy phone-uniqueness check against wallet records.
	FindUserByWalletBlob(fragment string) (*models.User, error)
	CreateUser(user models.User) error
	UpdateUser(user models.User) error

	GetServicesCache() (*models.ServicesCache, error)
	SaveServicesCache(cache models.ServicesCache) error

	ListManualPlans(kind, discriminator string) ([]models.Plan, error)
	AddManualPlan(plan models.Plan) error

	Ping() error
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". File paths and
// anything that is not a recognizable Postgres URL or key-value DSN are
// treated as SQLite paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// SessionKey derives the deterministic storage key for a normalized phone.
// SHA-256 keeps distinct phones collision-free (an invariant of the session
// store) while keeping raw identifiers out of primary keys.
func SessionKey(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(sum[:])
}
