// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package db opens the database and runs its migrations.
// Sources are "sqlite3:<path>" or a "postgres://" URL.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect
	_ "github.com/jackc/pgx/v5/stdlib"                  // driver
	_ "modernc.org/sqlite"                              // driver

	"codeberg.org/readeck/microdata/internal/db/migrations"
)

// ErrUnknownSource is returned when a database source is not supported.
var ErrUnknownSource = errors.New("unknown database source")

// Open opens a database from a source string.
func Open(source string) (*goqu.Database, error) {
	var dialect, driver, dsn string

	switch {
	case strings.HasPrefix(source, "sqlite3:"):
		dialect, driver = "sqlite3", "sqlite"
		path := strings.TrimPrefix(source, "sqlite3:")
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, err
			}
		}
		dsn = path + sqliteOptions(path)
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		dialect, driver, dsn = "postgres", "pgx", source
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == "sqlite3" {
		// One writer at a time. It also keeps a single ":memory:" database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	slog.Debug("database open", slog.String("dialect", dialect))
	return goqu.New(dialect, sqlDB), nil
}

// Close closes the database's underlying connection pool.
func Close(db *goqu.Database) error {
	if c, ok := db.Db.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func sqliteOptions(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies the pending migrations, each one in its own
// transaction, and records the applied ones.
func Migrate(db *goqu.Database) error {
	var err error
	switch db.Dialect() {
	case "sqlite3":
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS migration (
			id integer PRIMARY KEY,
			name text NOT NULL,
			applied datetime NOT NULL
		)`)
	case "postgres":
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS migration (
			id integer PRIMARY KEY,
			name text NOT NULL,
			applied timestamptz NOT NULL
		)`)
	}
	if err != nil {
		return err
	}

	var current int
	if _, err = db.From("migration").Select(goqu.COALESCE(goqu.MAX("id"), 0)).ScanVal(&current); err != nil {
		return err
	}

	for _, m := range migrations.List {
		if m.ID <= current {
			continue
		}

		err = db.WithTx(func(tx *goqu.TxDatabase) error {
			if err := m.Func(tx); err != nil {
				return err
			}
			_, err := tx.Insert("migration").Rows(goqu.Record{
				"id":      m.ID,
				"name":    m.Name,
				"applied": goqu.L("CURRENT_TIMESTAMP"),
			}).Executor().Exec()
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.ID, m.Name, err)
		}
		slog.Info("migration applied", slog.Int("id", m.ID), slog.String("name", m.Name))
	}

	return nil
}
