package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Admin implementation for tests and local runs
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	byEmail  map[string]string
	byPhone  map[string]string
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a, err := prepareAccount(account, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.byEmail[a.Email]; ok && a.Email != "" {
		return ErrConflict
	}
	if _, ok := s.byPhone[a.Phone]; ok && a.Phone != "" {
		return ErrConflict
	}

	s.accounts[a.ID] = a
	if a.Email != "" {
		s.byEmail[a.Email] = a.ID
	}
	if a.Phone != "" {
		s.byPhone[a.Phone] = a.ID
	}
	*account = *a.clone()
	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(ctx, s.byEmail[NormalizeEmail(email)])
}

func (s *MemoryStore) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(ctx, s.byPhone[phone])
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(ctx, id)
}

func (s *MemoryStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(a *Account) { a.LastLoginAt = at })
}

func (s *MemoryStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.update(ctx, id, func(a *Account) { a.Enabled = enabled })
}

func (s *MemoryStore) LockUntil(ctx context.Context, id string, until time.Time) error {
	return s.update(ctx, id, func(a *Account) { a.LockedUntil = until })
}

// lookup must be called with s.mu held
func (s *MemoryStore) lookup(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, ok := s.accounts[id]
	if !ok || id == "" {
		return nil, ErrNotFound
	}
	return a.clone(), nil
}

func (s *MemoryStore) update(ctx context.Context, id string, fn func(*Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fn(a)
	return nil
}

// prepareAccount validates a new account and fills generated fields
func prepareAccount(account *Account, now time.Time) (*Account, error) {
	a := account.clone()
	a.Email = NormalizeEmail(a.Email)
	if a.Email == "" && a.Phone == "" {
		return nil, errMissingCredential
	}
	if a.Phone != "" {
		// Lookups query E.164, so store it that way. Without a country code
		// the region would be a guess.
		if !strings.HasPrefix(strings.TrimSpace(a.Phone), "+") {
			return nil, fmt.Errorf("identity: phone %q needs a country code", a.Phone)
		}
		phone, err := NormalizePhone(a.Phone, "")
		if err != nil {
			return nil, fmt.Errorf("identity: %w", err)
		}
		a.Phone = phone
	}
	if a.PasswordHash == "" {
		return nil, ErrEmptyPassword
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	return a, nil
}
