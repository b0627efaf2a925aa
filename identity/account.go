// Package identity holds the account records the session controller
// authenticates against, and the stores that keep them.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no account matches a lookup
	ErrNotFound = errors.New("identity: account not found")
	// ErrConflict is returned when an email or phone is already registered
	ErrConflict = errors.New("identity: account already exists")

	errMissingCredential = errors.New("identity: account needs an email or a phone")
)

// Account is a stored user credential and its status
type Account struct {
	ID           string
	Email        string
	Phone        string // E.164, empty when the account has none
	PasswordHash string
	Roles        []string
	Plan         string
	Enabled      bool
	LockedUntil  time.Time // zero when not locked
	LastLoginAt  time.Time
	CreatedAt    time.Time
}

// Locked reports whether the account is locked at now
func (a *Account) Locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// Active reports whether the account may authenticate at now
func (a *Account) Active(now time.Time) bool {
	return a.Enabled && !a.Locked(now)
}

// Store is the lookup surface the session controller needs.
// Implementations return ErrNotFound for missing accounts; any other error
// means the store could not answer.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByPhone(ctx context.Context, phone string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// Admin is the management surface used by tooling and tests
type Admin interface {
	Store
	Create(ctx context.Context, account *Account) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	LockUntil(ctx context.Context, id string, until time.Time) error
}

// NormalizeEmail lower-cases and trims an email for lookup and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) clone() *Account {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}
