// Package sqlite is the default store driver, backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/saltoplay/platform/internal/oauth/store/drivers/sqlcore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	*sqlcore.Store
}

// NewStore opens dsn, e.g. "file:oauth.db" or "file::memory:".
//
// SQLite allows a single writer, so the pool is capped at one connection.
// This also keeps in-memory databases alive across calls.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Store: sqlcore.New(db, Dialect)}, nil
}

var Dialect = sqlcore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueViolation,
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
