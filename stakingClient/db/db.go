// Package db opens the SQLite database behind the staking metadata cache.
// The cache holds only chain data that can be fetched again. File databases
// run with a WAL journal, NORMAL sync and a 5s busy timeout.
package db

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pushchain/easystake/stakingClient/store"
)

const (
	// InMemorySQLiteDSN opens a database that lives as long as the process.
	InMemorySQLiteDSN = ":memory:"

	// DefaultFileName is the metadata database file inside the data directory.
	DefaultFileName = "metadata.db"

	dirPerm = 0o750
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = errors.New("metadata db is closed")

// filePragmas tune a file database for a rebuildable cache.
var filePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA temp_store = MEMORY",
}

// DB owns the gorm handle for the metadata tables.
type DB struct {
	client *gorm.DB
	path   string

	mu     sync.Mutex
	closed bool
}

// OpenFileDB opens or creates dir/filename, creating dir if needed. An empty
// filename means DefaultFileName. migrateSchema creates the metadata table.
func OpenFileDB(dir, filename string, migrateSchema bool) (*DB, error) {
	if filename == "" {
		filename = DefaultFileName
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "create data directory %s", dir)
	}
	path := filepath.Join(dir, filename)
	d, err := open(path, filePragmas, migrateSchema)
	if err != nil {
		return nil, errors.Wrapf(err, "open metadata db %s", path)
	}
	return d, nil
}

// OpenInMemoryDB opens a throwaway database, mostly for tests.
func OpenInMemoryDB(migrateSchema bool) (*DB, error) {
	d, err := open(InMemorySQLiteDSN, nil, migrateSchema)
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory metadata db")
	}
	return d, nil
}

func open(dsn string, pragmas []string, migrateSchema bool) (*DB, error) {
	client, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := client.DB()
	if err != nil {
		return nil, err
	}
	// An in-memory database exists per connection, so the pool holds one.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if err := client.Exec(p).Error; err != nil {
			sqlDB.Close()
			return nil, errors.Wrapf(err, "apply %q", p)
		}
	}
	if migrateSchema {
		if err := client.AutoMigrate(&store.MetaEntry{}); err != nil {
			sqlDB.Close()
			return nil, errors.Wrap(err, "migrate metadata schema")
		}
	}
	return &DB{client: client, path: dsn}, nil
}

// Client returns the gorm handle. It must not be used after Close.
func (d *DB) Client() *gorm.DB {
	return d.client
}

// Path is the database file, or InMemorySQLiteDSN.
func (d *DB) Path() string {
	return d.path
}

// Ping checks the connection is usable.
func (d *DB) Ping() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	sqlDB, err := d.client.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the connection. Further calls return nil.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "close metadata db")
	}
	return errors.Wrap(sqlDB.Close(), "close metadata db")
}
