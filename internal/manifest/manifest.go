// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package manifest persists the original names behind anonymized outputs so a
// later decrypt can restore them.
//
// The manifest maps file names, not contents; it holds no key material. Keep
// it outside the tree being encrypted.
package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrConflict indicates an anonymized name already recorded for a different original.
var ErrConflict = errors.New("anonymized name already recorded for another file")

// Store is a SQLite-backed name manifest. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the manifest at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("manifest path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the manifest file location.
func (s *Store) Path() string { return s.path }

// Record stores the original relative path behind anon. Recording the same
// pair twice is a no-op.
func (s *Store) Record(anon, original string) error {
	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO names (anon, original, recorded_at) VALUES (?, ?, ?)",
		anon, original, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record name: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	existing, ok, err := s.Lookup(anon)
	if err != nil {
		return err
	}
	if ok && existing != original {
		return fmt.Errorf("%w: %s", ErrConflict, anon)
	}
	return nil
}

// Lookup returns the original relative path recorded for anon.
func (s *Store) Lookup(anon string) (string, bool, error) {
	var original string
	err := s.db.QueryRow("SELECT original FROM names WHERE anon = ?", anon).Scan(&original)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up name: %w", err)
	}
	return original, true, nil
}

// Count returns the number of recorded names.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM names").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count names: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
