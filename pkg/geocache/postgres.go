package geocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		cache_key  TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);`

type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore expects a connection opened with the pgx stdlib driver.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("create geocode_cache: %w", err)
	}

	return nil
}

type dbCacheEntry struct {
	Payload   string    `db:"payload"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	var e dbCacheEntry

	query := `
	SELECT payload::text AS payload, expires_at
	FROM geocode_cache
	WHERE cache_key = $1 AND expires_at > now();`

	err := s.db.GetContext(ctx, &e, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("select geocode_cache: %w", err)
	}

	return []byte(e.Payload), time.Until(e.ExpiresAt), true, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	query := `
	INSERT INTO geocode_cache (cache_key, payload, expires_at)
	VALUES ($1, $2::jsonb, $3)
	ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at;`

	_, err := s.db.ExecContext(ctx, query, key, string(payload), time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("upsert geocode_cache: %w", err)
	}

	return nil
}

// Purge deletes expired rows. Reads already ignore them; this only keeps the
// table small.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE expires_at <= now();`)
	if err != nil {
		return 0, fmt.Errorf("purge geocode_cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}
