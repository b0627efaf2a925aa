package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccountActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name       string
		account    Account
		wantLocked bool
		wantActive bool
	}{
		{name: "enabled", account: Account{Enabled: true}, wantActive: true},
		{name: "disabled", account: Account{Enabled: false}},
		{name: "locked in future", account: Account{Enabled: true, LockedUntil: now.Add(time.Minute)}, wantLocked: true},
		{name: "lock expired", account: Account{Enabled: true, LockedUntil: now.Add(-time.Minute)}, wantActive: true},
		{name: "lock ends now", account: Account{Enabled: true, LockedUntil: now}, wantActive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLocked, tt.account.Locked(now))
			assert.Equal(t, tt.wantActive, tt.account.Active(now))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPasswordWithCost("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, ComparePassword("correct horse", hash))
	assert.ErrorIs(t, ComparePassword("wrong", hash), ErrMismatchedPassword)
	assert.Error(t, ComparePassword("x", "not-a-hash"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestDummyHashNeverMatchesEmpty(t *testing.T) {
	h := DummyHash()
	assert.Equal(t, h, DummyHash())
	assert.ErrorIs(t, ComparePassword("", h), ErrMismatchedPassword)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		number  string
		region  string
		want    string
		wantErr bool
	}{
		{number: "+1 415-555-0100", want: "+14155550100"},
		{number: "(415) 555-0100", region: "US", want: "+14155550100"},
		{number: "020 7031 3000", region: "gb", want: "+442070313000"},
		{number: "", wantErr: true},
		{number: "12", wantErr: true},
		{number: "not a number", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			got, err := NormalizePhone(tt.number, tt.region)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, LooksLikePhone("+1 (415) 555-0100"))
	assert.True(t, LooksLikePhone("4155550100"))
	assert.False(t, LooksLikePhone("a@x.io"))
	assert.False(t, LooksLikePhone("alice"))
	assert.False(t, LooksLikePhone("12"))
	assert.False(t, LooksLikePhone(""))
}

type failingStore struct{ Store }

func (failingStore) FindByID(context.Context, string) (*Account, error) {
	return nil, errors.New("database is locked")
}

func TestStatusChecker(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore()

	active := testAccount(t)
	require.NoError(t, store.Create(ctx, active))

	locked := testAccount(t)
	locked.Email, locked.Phone = "locked@x.io", ""
	locked.LockedUntil = now.Add(time.Hour)
	require.NoError(t, store.Create(ctx, locked))

	checker := StatusChecker{Store: store, Now: func() time.Time { return now }}

	ok, err := checker.AccountActive(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.AccountActive(ctx, locked.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.AccountActive(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = StatusChecker{Store: failingStore{}}.AccountActive(ctx, active.ID)
	assert.Error(t, err)
}
