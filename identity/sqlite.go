package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Wang-tianhao/edge-auth-go/identity/migrations"
)

const accountColumns = `id, email, phone, password_hash, roles, plan, enabled, locked_until, last_login_at, created_at`

// SQLiteStore is an Admin backed by database/sql and the modernc SQLite driver
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens dsn, applies the embedded migrations and returns the store.
// A bare file path gets WAL journaling and a busy timeout; ":memory:" is
// limited to one connection so every query sees the same database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore migrates db and wraps it. The caller keeps ownership of db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// RunMigrations applies every pending embedded migration
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, account *Account) error {
	a, err := prepareAccount(account, s.now())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		nullString(a.Email),
		nullString(a.Phone),
		a.PasswordHash,
		strings.Join(a.Roles, ","),
		a.Plan,
		a.Enabled,
		nullMillis(a.LockedUntil),
		nullMillis(a.LastLoginAt),
		a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	*account = *a
	return nil
}

func (s *SQLiteStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `email = ?`, NormalizeEmail(email))
}

func (s *SQLiteStore) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	return s.findOne(ctx, `phone = ?`, phone)
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.findOne(ctx, `id = ?`, id)
}

func (s *SQLiteStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, `last_login_at = ?`, at.UnixMilli(), id)
}

func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.updateOne(ctx, `enabled = ?`, enabled, id)
}

// LockUntil locks the account until the given time; a zero time unlocks it
func (s *SQLiteStore) LockUntil(ctx context.Context, id string, until time.Time) error {
	return s.updateOne(ctx, `locked_until = ?`, nullMillis(until), id)
}

func (s *SQLiteStore) findOne(ctx context.Context, where string, arg any) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)

	var (
		a                        Account
		email, phone             sql.NullString
		roles                    string
		lockedUntil, lastLoginAt sql.NullInt64
		createdAt                int64
	)
	err := row.Scan(&a.ID, &email, &phone, &a.PasswordHash, &roles, &a.Plan, &a.Enabled, &lockedUntil, &lastLoginAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}

	a.Email = email.String
	a.Phone = phone.String
	if roles != "" {
		a.Roles = strings.Split(roles, ",")
	}
	a.LockedUntil = fromNullMillis(lockedUntil)
	a.LastLoginAt = fromNullMillis(lastLoginAt)
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

func (s *SQLiteStore) updateOne(ctx context.Context, set string, value any, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET `+set+` WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteDSN(dsn string) string {
	if isMemoryDSN(dsn) || strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}
