// Package store provides storage backends for vtubot.
//
// This file implements an in-memory store used by tests and DSN-less runs.
package store

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/sregle/vtubot/internal/models"
)

// InMemoryStore keeps all state in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]models.Session // keyed by SessionKey(phone)
	users       map[string]models.User    // keyed by user id
	services    *models.ServicesCache
	manualPlans []models.Plan
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]models.Session),
		users:    make(map[string]models.User),
	}
}

// GetSession retrieves the session stored for a normalized phone.
func (s *InMemoryStore) GetSession(phone string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[SessionKey(phone)]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

// SaveSession stores or replaces the session for its phone.
func (s *InMemoryStore) SaveSession(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[SessionKey(session.Phone)] = session
	return nil
}

// DeleteSession removes the session for a phone.
func (s *InMemoryStore) DeleteSession(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, SessionKey(phone))
	return nil
}

// DeleteSessionsIdleSince removes sessions not updated since cutoff.
func (s *InMemoryStore) DeleteSessionsIdleSince(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, key)
			n++
		}
	}
	return n, nil
}

// GetUser retrieves a user by id.
func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	user.Wallet.Normalize()
	return &user, nil
}

func (s *InMemoryStore) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if match(user) {
			user.Wallet.Normalize()
			return &user, nil
		}
	}
	return nil, nil
}

// GetUserByUsername retrieves a user by login name.
func (s *InMemoryStore) GetUserByUsername(username string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

// GetUserByEmail retrieves a user by email.
func (s *InMemoryStore) GetUserByEmail(email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

// GetUserByPhone retrieves a user by normalized phone.
func (s *InMemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Phone == phone })
}

// FindUserByWalletBlob scans wallet JSON blobs for a substring.
func (s *InMemoryStore) FindUserByWalletBlob(fragment string) (*models.User, error) {
	if fragment == "" {
		return nil, nil
	}
	return s.findUser(func(u models.User) bool {
		blob, err := json.Marshal(u.Wallet)
		if err != nil {
			return false
		}
		return strings.Contains(string(blob), fragment)
	})
}

// CreateUser inserts a new user record.
func (s *InMemoryStore) CreateUser(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return models.ErrDuplicateUsername
		}
		if existing.Email == user.Email {
			return models.ErrDuplicateEmail
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return models.ErrDuplicatePhone
		}
	}
	s.users[user.ID] = user
	return nil
}

// UpdateUser replaces the stored record for an existing user.
func (s *InMemoryStore) UpdateUser(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

// GetServicesCache retrieves the cached provider catalog, if any.
func (s *InMemoryStore) GetServicesCache() (*models.ServicesCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.services == nil {
		return nil, nil
	}
	copied := *s.services
	return &copied, nil
}

// SaveServicesCache stores the provider catalog snapshot.
func (s *InMemoryStore) SaveServicesCache(cache models.ServicesCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = &cache
	return nil
}

// ListManualPlans returns admin-curated plans for a kind and network/provider.
func (s *InMemoryStore) ListManualPlans(kind, discriminator string) ([]models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var plans []models.Plan
	for _, p := range s.manualPlans {
		if p.Kind != kind {
			continue
		}
		if manualDiscriminator(p) == discriminator {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

// AddManualPlan inserts an admin-curated plan.
func (s *InMemoryStore) AddManualPlan(plan models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan.Manual = true
	s.manualPlans = append(s.manualPlans, plan)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *InMemoryStore) Ping() error { return nil }

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
