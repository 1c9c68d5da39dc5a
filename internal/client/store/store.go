// Package store is the durable key-value storage of the finkeeper client.
//
// One SQLite file holds two collections: the TTL cache of resource
// snapshots and the queue of mutations waiting for the server. The file is
// opened once per Store; a failed open is remembered and reported as
// ErrStorageUnavailable by every later call without trying again.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/filex"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	Name          = "FinanceAppCache"
	SchemaVersion = 1

	MemoryPath = ":memory:"
)

var (
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrStorageOperationFailed = errors.New("storage operation failed")
	ErrNotFound               = errors.New("key not found")
)

// Collection is a logical keyspace of the store.
type Collection string

const (
	Cache     Collection = "cache"
	SyncQueue Collection = "syncQueue"
)

var tables = map[Collection]string{
	Cache:     "cache",
	SyncQueue: "sync_queue",
}

// Record is one key/value pair of a collection.
type Record struct {
	Key   string
	Value []byte
}

// Ops are the per-collection operations, available on the Store and inside
// an Update transaction.
type Ops interface {
	Put(ctx context.Context, c Collection, key string, value []byte) error
	Get(ctx context.Context, c Collection, key string) ([]byte, error)
	Delete(ctx context.Context, c Collection, key string) error
	GetAll(ctx context.Context, c Collection) ([]Record, error)
	Clear(ctx context.Context, c Collection) error
}

// Backend is what the cache manager and the mutation queue build on.
type Backend interface {
	Ops
	Update(ctx context.Context, fn func(ctx context.Context, tx Ops) error) error
}

// Opener returns a ready database handle. It is a seam for tests.
type Opener func(ctx context.Context) (*sql.DB, error)

type Store struct {
	opener Opener
	log    logging.Logger

	once    sync.Once
	db      *sql.DB
	openErr error
}

type Option func(*Store)

func WithOpener(o Opener) Option {
	return func(s *Store) { s.opener = o }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New prepares a store backed by the SQLite file at path. Nothing is opened
// until the first operation.
func New(path string, opts ...Option) *Store {
	s := &Store{
		opener: SQLiteOpener(path),
		log:    logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "store")
	return s
}

// SQLiteOpener opens the file with the pure-Go driver and a single
// connection.
func SQLiteOpener(path string) Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		dsn := path
		if path != MemoryPath {
			if err := filex.EnsureParentDir(path); err != nil {
				return nil, err
			}
			dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}

		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
}

// RunMigrations applies the embedded migrations. They only ever add
// structure, so pending mutations survive upgrades.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// Open initializes the store once and returns the shared handle. All
// callers, concurrent or later, observe the same outcome.
func (s *Store) Open(ctx context.Context) (*sql.DB, error) {
	s.once.Do(func() {
		ctx := context.WithoutCancel(ctx)

		db, err := s.opener(ctx)
		if err == nil {
			if err = RunMigrations(ctx, db); err != nil {
				_ = db.Close()
			}
		}
		if err != nil {
			s.openErr = fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, Name, err)
			s.log.Warn(ctx, "store unavailable, running without cache", "error", err)
			return
		}

		s.db = db
		s.log.Debug(ctx, "store opened", "name", Name, "schema", SchemaVersion)
	})
	return s.db, s.openErr
}

// Close releases the handle. The store cannot be reopened afterwards.
func (s *Store) Close() error {
	s.once.Do(func() { s.openErr = fmt.Errorf("%w: closed", ErrStorageUnavailable) })
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, c Collection, key string, value []byte) error {
	db, err := s.Open(ctx)
	if err != nil {
		return err
	}
	return ops{db}.Put(ctx, c, key, value)
}

func (s *Store) Get(ctx context.Context, c Collection, key string) ([]byte, error) {
	db, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	return ops{db}.Get(ctx, c, key)
}

func (s *Store) Delete(ctx context.Context, c Collection, key string) error {
	db, err := s.Open(ctx)
	if err != nil {
		return err
	}
	return ops{db}.Delete(ctx, c, key)
}

func (s *Store) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	db, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	return ops{db}.GetAll(ctx, c)
}

func (s *Store) Clear(ctx context.Context, c Collection) error {
	db, err := s.Open(ctx)
	if err != nil {
		return err
	}
	return ops{db}.Clear(ctx, c)
}

// Update runs fn in a single transaction.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx Ops) error) error {
	db, err := s.Open(ctx)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, ops{tx})
	})
	if err != nil && !isStoreError(err) {
		return fmt.Errorf("%w: transaction: %w", ErrStorageOperationFailed, err)
	}
	return err
}

func isStoreError(err error) bool {
	return errors.Is(err, ErrStorageOperationFailed) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorageUnavailable)
}
