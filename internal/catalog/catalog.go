// Package catalog persists Pattern Repository snapshots to SQLite for
// restart recovery, using jmoiron/sqlx the way config.Init and
// internal/repository's DBConnection do.
package catalog

import (
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/yourfrienddhruv/hornetq/pkg/wildcard"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pattern_entry (
	pattern   TEXT PRIMARY KEY,
	value     BLOB NOT NULL,
	immutable BOOLEAN NOT NULL
);`

// Store is a SQLite-backed snapshot of one Pattern Repository's
// pattern set.
type Store struct {
	db *sqlx.DB
}

// Open creates or reopens the catalog database at path, applying the
// schema if absent.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// sqlite does not multithread writers; a single connection avoids
	// lock-contention errors under the write-heavy Persist path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type patternRow struct {
	Pattern   string `db:"pattern"`
	Value     []byte `db:"value"`
	Immutable bool   `db:"immutable"`
}

// Persist replaces the stored snapshot with entries, encoding each
// pattern's value via encode. values must hold an entry for every
// pattern in entries (the Pattern Repository's Snapshot does not carry
// values; callers read each pattern's own value with ValueAt). Runs inside a single
// transaction so a reader never observes a partially written snapshot.
func Persist[V any](s *Store, entries []wildcard.Entry, values map[string]V, encode func(V) ([]byte, error)) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pattern_entry"); err != nil {
		return fmt.Errorf("catalog: clear: %w", err)
	}

	for _, e := range entries {
		value, ok := values[e.Pattern]
		if !ok {
			return fmt.Errorf("catalog: no value supplied for pattern %q", e.Pattern)
		}
		blob, err := encode(value)
		if err != nil {
			return fmt.Errorf("catalog: encode %q: %w", e.Pattern, err)
		}
		if _, err := tx.NamedExec(
			`INSERT INTO pattern_entry (pattern, value, immutable) VALUES (:pattern, :value, :immutable)`,
			patternRow{Pattern: e.Pattern, Value: blob, Immutable: e.Immutable},
		); err != nil {
			return fmt.Errorf("catalog: insert %q: %w", e.Pattern, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	cclog.Infof("[CATALOG]> persisted %d pattern entries", len(entries))
	return nil
}

// Load restores repo's pattern set from the stored snapshot, decoding
// each row's value via decode and calling repo.Add.
func Load[V any](s *Store, repo *wildcard.Repository[V], decode func([]byte) (V, error)) error {
	var rows []patternRow
	if err := s.db.Select(&rows, "SELECT pattern, value, immutable FROM pattern_entry"); err != nil {
		return fmt.Errorf("catalog: select: %w", err)
	}

	for _, row := range rows {
		value, err := decode(row.Value)
		if err != nil {
			return fmt.Errorf("catalog: decode %q: %w", row.Pattern, err)
		}
		if err := repo.Add(row.Pattern, value, row.Immutable); err != nil {
			return fmt.Errorf("catalog: restore %q: %w", row.Pattern, err)
		}
	}
	cclog.Infof("[CATALOG]> restored %d pattern entries", len(rows))
	return nil
}
