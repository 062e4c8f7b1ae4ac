// Package models defines the core data structures for the vtubot service.
//
// It includes sessions, users, wallet profiles, catalog plans, and purchase
// outcomes, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Error variables for better error handling and testability
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrNoAPIKey          = errors.New("no API key linked to account")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicatePhone    = errors.New("phone already registered")
)

// DefaultBankName is the funding bank assigned when a wallet profile has none.
const DefaultBankName = "Palmpay"

// BankAccount is one funding bank-account record on a wallet profile.
type BankAccount struct {
	Number string `json:"account_number"`
	Name   string `json:"account_name"`
	Bank   string `json:"bank_name"`
}

// WalletProfile is the cached copy of a user's prepaid wallet held by the
// external provider. The provider is the system of record; the bot only
// overwrites this copy from provider responses.
type WalletProfile struct {
	Balance    float64     `json:"balance"`
	PlainPIN   string      `json:"pin,omitempty"`
	ExternalID string      `json:"vr_id,omitempty"` // doubles as the per-user API key
	Main       BankAccount `json:"main_account"`
	Alt        BankAccount `json:"alt_account"`
}

// Normalize fills defaults for missing wallet fields. It is applied on every
// load so downstream code never sees absent bank names or balances.
func (w *WalletProfile) Normalize() {
	if w.Main.Bank == "" {
		w.Main.Bank = DefaultBankName
	}
	if w.Alt.Bank == "" {
		w.Alt.Bank = DefaultBankName
	}
	if w.Balance < 0 {
		w.Balance = 0
	}
}

// User is an account in the user directory.
type User struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	DisplayName    string        `json:"display_name"`
	Phone          string        `json:"phone"`
	HashedPassword string        `json:"-"`
	HashedPIN      string        `json:"-"`
	Wallet         WalletProfile `json:"wallet"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Credential is the (id, API key) pair used to act on behalf of a specific
// user against the external provider API.
type Credential struct {
	ExternalID string
	APIKey     string
}

// PurchaseKind selects which provider operation a purchase executes.
type PurchaseKind string

const (
	PurchaseAirtime PurchaseKind = "airtime"
	PurchaseData    PurchaseKind = "data"
	PurchaseCable   PurchaseKind = "cable"
	PurchaseBill    PurchaseKind = "bill"
)

// Outcome is the interpreted result of a provider purchase call.
type Outcome struct {
	Success         bool
	Message         string
	PreviousBalance *float64
	CurrentBalance  *float64
}
