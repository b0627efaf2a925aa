package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword      = errors.New("identity: password must not be empty")
	ErrMismatchedPassword = errors.New("identity: password does not match")
)

// HashPassword will generate a bcrypt hash at the default cost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, bcrypt.DefaultCost)
}

// HashPasswordWithCost will generate a bcrypt hash at the given cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// ComparePassword validates the cleartext password against hash
func ComparePassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPassword
		}
		return err
	}
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// DummyHash returns a hash of a random password at the default cost.
// Comparing against it when no account exists keeps login timing uniform.
func DummyHash() string {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
		if err != nil {
			panic(fmt.Sprintf("identity: generate dummy hash: %v", err))
		}
		dummyHash = string(h)
	})
	return dummyHash
}
