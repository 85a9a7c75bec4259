// Package state provides the persistent key/value store behind the DHCP and
// DNS services.
//
// Values live in named buckets inside a single SQLite database (pure Go
// driver, WAL mode for file-backed stores). Services use the typed bucket
// accessors in buckets.go instead of raw keys.
package state

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/errors"
)

// Common errors
var (
	ErrNotFound     = errors.New(errors.KindNotFound, "key not found")
	ErrBucketExists = errors.New(errors.KindValidation, "bucket already exists")
	ErrStoreClosed  = errors.New(errors.KindStorage, "store is closed")
)

// Store is the state storage interface.
type Store interface {
	CreateBucket(name string) error

	Get(bucket, key string) ([]byte, error)
	Set(bucket, key string, value []byte) error
	List(bucket string) (map[string][]byte, error)

	GetJSON(bucket, key string, v interface{}) error
	SetJSON(bucket, key string, v interface{}) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	clock  clock.Clock
}

// Options configures the SQLite store.
type Options struct {
	Path    string      // Database file path (":memory:" for in-memory)
	WALMode bool        // Enable WAL mode for better concurrency
	Clock   clock.Clock // Optional: time source (defaults to the real clock)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions(path string) Options {
	return Options{
		Path:    path,
		WALMode: true,
	}
}

// NewSQLiteStore creates a new SQLite-backed state store.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if opts.WALMode && opts.Path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindStorage, "failed to open database")
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.KindStorage, "failed to connect to database")
	}

	s := &SQLiteStore{
		db:    db,
		clock: clock.OrReal(opts.Clock),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.KindStorage, "failed to initialize schema")
	}

	return s, nil
}

// initSchema creates the database tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS buckets (
			name TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (bucket, key)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateBucket creates a new bucket.
func (s *SQLiteStore) CreateBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM buckets WHERE name = ?", name).Scan(&exists)
	if err == nil {
		return ErrBucketExists
	}
	if err != sql.ErrNoRows {
		return errors.Wrap(err, errors.KindStorage, "failed to look up bucket")
	}

	if _, err := s.db.Exec("INSERT INTO buckets (name, created_at) VALUES (?, ?)", name, s.clock.Now()); err != nil {
		return errors.Wrapf(err, errors.KindStorage, "failed to create bucket %s", name)
	}
	return nil
}

// EnsureBucket creates a bucket if it does not exist yet.
func EnsureBucket(store Store, name string) error {
	if err := store.CreateBucket(name); err != nil && !errors.Is(err, ErrBucketExists) {
		return err
	}
	return nil
}

// Get retrieves a value by bucket and key.
func (s *SQLiteStore) Get(bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var value []byte
	err := s.db.QueryRow("SELECT value FROM entries WHERE bucket = ? AND key = ?", bucket, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindStorage, "failed to read %s/%s", bucket, key)
	}
	return value, nil
}

// Set stores a value, replacing any previous value under the same key.
func (s *SQLiteStore) Set(bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO entries (bucket, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, bucket, key, value, s.clock.Now())
	if err != nil {
		return errors.Wrapf(err, errors.KindStorage, "failed to write %s/%s", bucket, key)
	}
	return nil
}

// List returns all key-value pairs in a bucket.
func (s *SQLiteStore) List(bucket string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query("SELECT key, value FROM entries WHERE bucket = ?", bucket)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindStorage, "failed to list %s", bucket)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *SQLiteStore) GetJSON(bucket, key string, v interface{}) error {
	data, err := s.Get(bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, errors.KindStorage, "corrupt value at %s/%s", bucket, key)
	}
	return nil
}

// SetJSON marshals and stores a JSON value.
func (s *SQLiteStore) SetJSON(bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to encode value")
	}
	return s.Set(bucket, key, data)
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Ping()
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
