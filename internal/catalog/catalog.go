// Package catalog implements the media catalog store: a single embedded
// SQLite database holding live records, an archive ("attic") of records
// removed by path prefix, a broken-file set, and a full-text index over
// title/artist/album. All entry points are safe for concurrent use; they
// serialize on a single process-wide mutex and retry SQL BUSY responses
// per the store's retry budget.
package catalog

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/franz/music-janitor/internal/util"
)

// Mode selects whether Open may rebuild a mismatched schema.
type Mode int

const (
	// ReadWrite rebuilds (drops and recreates) all tables when the
	// on-disk schema version differs from currentSchemaVersion.
	ReadWrite Mode = iota
	// ReadOnly fails with ErrSchemaMismatch instead of rebuilding.
	ReadOnly
)

// Store is the catalog database handle.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the catalog database at path.
func Open(path string, mode Mode) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(mode); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(mode Mode) error {
	version, err := s.readSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	if mode == ReadOnly {
		return fmt.Errorf("%w: on-disk version %d, expected %d", util.ErrSchemaMismatch, version, currentSchemaVersion)
	}

	util.InfoLog("catalog: schema version %d != %d, rebuilding", version, currentSchemaVersion)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema rebuild: %w", err)
	}
	defer tx.Rollback()

	if version != 0 {
		if _, err := tx.Exec(dropAllTablesDDL()); err != nil {
			return fmt.Errorf("drop stale schema: %w", err)
		}
	}
	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("clear schema_version: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES (?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	return tx.Commit()
}

func (s *Store) readSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("probe schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

// withLock runs fn while holding the store's process-wide mutex, retrying
// the whole call while it returns a SQL BUSY error (bounded retry budget).
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.RetryBusy(fn)
}

// Transaction is a scoped write transaction. Commit persists the pending
// writes and immediately opens a fresh transaction so the caller can
// continue writing (used by bulk scans that commit periodically).
// If the Transaction is dropped (via End) without a final Commit, the
// pending work rolls back — the Go idiom for the source's
// destructor-rollback handle.
type Transaction struct {
	store *Store
	tx    *sql.Tx
}

// BeginTransaction acquires the store lock for the lifetime of the
// returned Transaction. Callers must call End (typically via defer)
// to release the lock; Commit may be called any number of times before
// that to persist progress.
func (s *Store) BeginTransaction() (*Transaction, error) {
	s.mu.Lock()
	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Transaction{store: s, tx: tx}, nil
}

// Commit commits the pending writes and opens a fresh transaction for
// continued use.
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	tx, err := t.store.db.Begin()
	if err != nil {
		return fmt.Errorf("reopen transaction: %w", err)
	}
	t.tx = tx
	return nil
}

// End rolls back any uncommitted work and releases the store lock. Safe
// to call after a final Commit (the rollback on an already-committed tx
// is a no-op error we discard).
func (t *Transaction) End() {
	_ = t.tx.Rollback()
	t.store.mu.Unlock()
}
