// Package localcache keeps the client copy of the cart between runs.
package localcache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/pkg/api"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

const (
	// CartKey is the storage key the client cart lives under.
	CartKey = "flexova-cart"
	// MergePendingKey is present while a reconcile pushed only part of the
	// client cart to the server.
	MergePendingKey = "flexova-cart-merge-pending"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) runMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Load returns the stored cart, or domain.ErrCartNotFound when nothing is
// stored yet.
func (c *SQLiteCache) Load(ctx context.Context) (*domain.Cart, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, CartKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local cart: %w", err)
	}
	return decode([]byte(raw))
}

func (c *SQLiteCache) Save(ctx context.Context, cart *domain.Cart) error {
	raw, err := json.Marshal(api.FromDomain(cart))
	if err != nil {
		return fmt.Errorf("failed to encode local cart: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, CartKey, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write local cart: %w", err)
	}
	return nil
}

func (c *SQLiteCache) LoadMergePending(ctx context.Context) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM local_storage WHERE key = ?`, MergePendingKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to read merge marker: %w", err)
	}
	return n > 0, nil
}

func (c *SQLiteCache) SaveMergePending(ctx context.Context, pending bool) error {
	var err error
	if pending {
		_, err = c.db.ExecContext(ctx, `
			INSERT INTO local_storage (key, value, updated_at) VALUES (?, '1', ?)
			ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at
		`, MergePendingKey, time.Now().UTC())
	} else {
		_, err = c.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, MergePendingKey)
	}
	if err != nil {
		return fmt.Errorf("failed to write merge marker: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func decode(raw []byte) (*domain.Cart, error) {
	var wire api.Cart
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode local cart: %w", err)
	}
	return wire.ToDomain(), nil
}

// MemoryCache holds the cart in process memory only.
type MemoryCache struct {
	mu      sync.Mutex
	raw     []byte
	pending bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Load(context.Context) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raw == nil {
		return nil, domain.ErrCartNotFound
	}
	return decode(m.raw)
}

func (m *MemoryCache) Save(_ context.Context, cart *domain.Cart) error {
	raw, err := json.Marshal(api.FromDomain(cart))
	if err != nil {
		return fmt.Errorf("failed to encode local cart: %w", err)
	}
	m.mu.Lock()
	m.raw = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) LoadMergePending(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, nil
}

func (m *MemoryCache) SaveMergePending(_ context.Context, pending bool) error {
	m.mu.Lock()
	m.pending = pending
	m.mu.Unlock()
	return nil
}
