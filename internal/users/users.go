// Package users implements the user directory for vtubot.
//
// It provides account lookup by several identifier kinds, registration with
// uniqueness checks, transaction-PIN verification, and resolution of the
// per-user provider API credentials.
package users

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Validation constants for registration input.
const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6
	// MinPINLength and MaxPINLength bound the numeric transaction PIN.
	MinPINLength = 4
	MaxPINLength = 6
)

// Directory exposes user account operations backed by a Store.
type Directory struct {
	store store.Store
}

// NewDirectory creates a user directory over the given store.
func NewDirectory(st store.Store) *Directory {
	return &Directory{store: st}
}

// FindByIdentifier locates a user by login name, email, phone, or as a last
// resort by a substring scan of the stored wallet blob. Returns nil, nil
// when nothing matches.
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	if u, err := d.store.GetUserByUsername(identifier); err != nil || u != nil {
		return u, err
	}
	if u, err := d.store.GetUserByEmail(identifier); err != nil || u != nil {
		return u, err
	}
	if u, err := d.store.GetUserByPhone(identifier); err != nil || u != nil {
		return u, err
	}
	u, err := d.store.FindUserByWalletBlob(identifier)
	if err != nil {
		return nil, err
	}
	if u == nil {
		slog.Debug("Directory.FindByIdentifier: no match", "identifier", identifier)
	}
	return u, nil
}

// UsernameTaken reports whether a username is already registered.
func (d *Directory) UsernameTaken(ctx context.Context, username string) (bool, error) {
	u, err := d.store.GetUserByUsername(username)
	return u != nil, err
}

// EmailTaken reports whether an email is already registered.
func (d *Directory) EmailTaken(ctx context.Context, email string) (bool, error) {
	u, err := d.store.GetUserByEmail(email)
	return u != nil, err
}

// PhoneTaken reports whether a phone is already registered, checking both
// the phone column and the wallet blobs (legacy accounts keep the phone only
// inside the wallet record).
func (d *Directory) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	u, err := d.store.GetUserByPhone(phone)
	if err != nil {
		return false, err
	}
	if u != nil {
		return true, nil
	}
	u, err = d.store.FindUserByWalletBlob(phone)
	return u != nil, err
}

// SanitizeUsername lowercases and strips a candidate username down to
// letters, digits, dot, dash and underscore.
func SanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidEmail reports whether the address parses as an RFC 5322 mailbox.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ValidPIN reports whether pin is 4-6 digits.
func ValidPIN(pin string) bool {
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Register creates a new account from completed registration data plus the
// chosen PIN, initializing the wallet profile with a zero balance.
func (d *Directory) Register(ctx context.Context, reg models.RegistrationData, pin string) (*models.User, error) {
	if reg.FirstName == "" || reg.Username == "" || reg.Email == "" || reg.Phone == "" || reg.Password == "" {
		return nil, fmt.Errorf("registration data incomplete")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedPIN, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}

	user := models.User{
		ID:             uuid.NewString(),
		Username:       reg.Username,
		Email:          reg.Email,
		DisplayName:    strings.TrimSpace(reg.FirstName + " " + reg.LastName),
		Phone:          reg.Phone,
		HashedPassword: string(hashedPassword),
		HashedPIN:      string(hashedPIN),
		Wallet: models.WalletProfile{
			Balance:  0,
			PlainPIN: pin, // provider account format still carries the plain PIN
		},
		CreatedAt: time.Now(),
	}
	user.Wallet.Normalize()

	if err := d.store.CreateUser(user); err != nil {
		slog.Error("Directory.Register: create failed", "error", err, "username", reg.Username)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("Directory.Register: account created", "id", user.ID, "username", user.Username)
	return &user, nil
}

// CheckPIN verifies a transaction PIN against both stored representations:
// the plaintext wallet PIN (constant-time compare) and the bcrypt hash.
// A successful plaintext match backfills a missing hash so legacy accounts
// upgrade transparently.
func (d *Directory) CheckPIN(ctx context.Context, user *models.User, pin string) bool {
	if user == nil || pin == "" {
		return false
	}
	plain := user.Wallet.PlainPIN
	if plain != "" && subtle.ConstantTimeCompare([]byte(plain), []byte(pin)) == 1 {
		if user.HashedPIN == "" {
			if hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost); err == nil {
				user.HashedPIN = string(hashed)
				if err := d.store.UpdateUser(*user); err != nil {
					slog.Warn("Directory.CheckPIN: hash backfill failed", "error", err, "user", user.ID)
				}
			}
		}
		return true
	}
	if user.HashedPIN != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPIN), []byte(pin)); err == nil {
			return true
		}
	}
	return false
}

// ResolveCredentials maps an authenticated user to provider API credentials.
// A missing wallet external id is terminal for purchases: the bot never
// substitutes admin credentials for a user's identity.
func (d *Directory) ResolveCredentials(ctx context.Context, userID string) (models.Credential, error) {
	user, err := d.store.GetUser(userID)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return models.Credential{}, models.ErrUserNotFound
	}
	if user.Wallet.ExternalID == "" {
		slog.Warn("Directory.ResolveCredentials: no API key linked", "user", userID)
		return models.Credential{}, models.ErrNoAPIKey
	}
	return models.Credential{ExternalID: user.ID, APIKey: user.Wallet.ExternalID}, nil
}

// SaveWalletBalance overwrites the cached wallet balance for a user. The
// provider response is authoritative; no local ledger is maintained.
func (d *Directory) SaveWalletBalance(ctx context.Context, userID string, balance float64) error {
	user, err := d.store.GetUser(userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}
	user.Wallet.Balance = balance
	if err := d.store.UpdateUser(*user); err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	slog.Debug("Directory.SaveWalletBalance: balance updated", "user", userID, "balance", balance)
	return nil
}

// SetSavedPhone records the WhatsApp number a user last authenticated from,
// used by the "me" recipient shortcut in purchase flows.
func (d *Directory) SetSavedPhone(ctx context.Context, userID, phone string) error {
	user, err := d.store.GetUser(userID)
	if err != nil || user == nil {
		if err == nil {
			err = models.ErrUserNotFound
		}
		return err
	}
	if user.Phone == phone {
		return nil
	}
	user.Phone = phone
	return d.store.UpdateUser(*user)
}
