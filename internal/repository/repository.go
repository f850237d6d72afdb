package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn against a repository bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error, opts ...*sql.TxOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	}, opts...)
}

// ReadSnapshot runs fn in a read-only transaction where every statement sees the
// same snapshot, so counts and pages taken inside it agree with each other.
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(tx *Repository) error) error {
	if opts := snapshotOptions(r.db.Dialector.Name()); opts != nil {
		return r.Transaction(ctx, fn, opts)
	}
	return r.Transaction(ctx, fn)
}

// snapshotOptions picks transaction options for a statement-stable read.
// Postgres defaults to READ COMMITTED, which takes a new snapshot per statement.
// SQLite transactions already read from one snapshot and reject isolation levels.
func snapshotOptions(dialect string) *sql.TxOptions {
	if dialect == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
