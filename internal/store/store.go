// Package store provides transactional accessors over the PartVault
// metadata tables.
package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Typed store errors. Callers match with errors.Is.
var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: uniqueness violation")
)

// Store wraps one database handle. All accessors run either as a standalone
// statement or inside a short transaction; nothing retries internally.
type Store struct {
	db *gorm.DB
}

// New returns a Store bound to the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that compose their own
// transactions around store operations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside one database transaction, handing it a Store
// scoped to that transaction.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// wrapErr maps driver-level errors onto the store's typed errors.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

// isUniqueViolation sniffs driver error text for unique-constraint failures.
// SQLite reports "UNIQUE constraint failed"; MySQL "Duplicate entry".
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
