// Package sqlite implements the repositories over the embedded SQLite
// database. Timestamps are stored as unix milliseconds in UTC.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"fixit/internal/database"
)

// Store bundles the repositories sharing one *sql.DB.
type Store struct {
	db       *sql.DB
	Requests *RequestRepo
	Users    *UserRepo
	Vendors  *VendorRepo
}

// Open opens path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := database.MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Requests: &RequestRepo{db: db},
		Users:    &UserRepo{db: db},
		Vendors:  &VendorRepo{db: db},
	}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMillis(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return toMillis(*t)
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
