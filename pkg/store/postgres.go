package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Mediquereminder/medique-sub000/pkg/config"
	"github.com/Mediquereminder/medique-sub000/pkg/interfaces"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
)

// Postgres is a KVStore backed by a single collections table. Each key holds
// one JSON document (a whole collection); Update serializes writers on a key
// with SELECT ... FOR UPDATE.
type Postgres struct {
	db     *sql.DB
	config *config.StoreConfig
	logger *logger.Logger
}

var _ interfaces.KVStore = (*Postgres)(nil)

// NewPostgres creates a postgres-backed store and ensures the schema exists
func NewPostgres(cfg *config.StoreConfig, log *logger.Logger) (*Postgres, error) {
	connStr := buildConnectionString(cfg)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Postgres{
		db:     sqlDB,
		config: cfg,
		logger: log,
	}

	if err := store.ensureSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Info("Database connection established successfully")
	return store, nil
}

// buildConnectionString constructs the PostgreSQL connection string
func buildConnectionString(cfg *config.StoreConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// ensureSchema creates the collections table if it does not exist
func (p *Postgres) ensureSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Get returns the value stored under key, or nil if the key is absent
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		p.logger.WithError(err).Errorf("Failed to get collection %s", key)
		return nil, fmt.Errorf("failed to get collection %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO collections (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		p.logger.WithError(err).Errorf("Failed to put collection %s", key)
		return fmt.Errorf("failed to put collection %s: %w", key, err)
	}
	return nil
}

// Update runs fn against the current value of key inside a transaction that
// row-locks the key, then writes the result. If fn returns an error the
// transaction rolls back and nothing is written.
func (p *Postgres) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = $1 FOR UPDATE`, key).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to lock collection %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, next)
	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update of %s: %w", key, err)
	}

	return nil
}

// Health checks the database connection health
func (p *Postgres) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
