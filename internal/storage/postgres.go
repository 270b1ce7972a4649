package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/migrations"
)

const (
	maxConnectionRetries = 3
	connectionRetrySleep = 2 * time.Second
	migrationLockID      = 7201

	defaultMaxConns        = 4
	defaultMinConns        = 1
	defaultMaxConnIdleTime = 5 * time.Minute
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewPostgres connects to the database, pinging with retries before giving
// up. The returned store owns the pool; callers must Close it.
func NewPostgres(ctx context.Context, dsn string, logger *zerolog.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	config.MaxConnIdleTime = defaultMaxConnIdleTime

	var pool *pgxpool.Pool

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &PostgresStore{pool: pool, logger: logger}, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		time.Sleep(connectionRetrySleep)
	}

	return nil, fmt.Errorf("connect to database after retries: %w", err)
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Migrate applies embedded goose migrations under an advisory lock so only
// one instance migrates at a time.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*s.pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: s.logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM kv_entries WHERE key = $1 AND expires_at > now())`,
		key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("kv exists: %w", err)
	}

	return exists, nil
}

func (s *PostgresStore) SetWithTTL(ctx context.Context, key string, ttl time.Duration, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (key, value, expires_at)
		 VALUES ($1, $2, now() + make_interval(secs => $3))
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListAppend(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_list_entries (key, value) VALUES ($1, $2)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("kv list append: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListTrim(ctx context.Context, key string, start, stop int) error {
	n, err := s.listLen(ctx, key)
	if err != nil {
		return err
	}

	from, to, ok := resolveRange(start, stop, n)
	if !ok {
		if _, err := s.pool.Exec(ctx, `DELETE FROM kv_list_entries WHERE key = $1`, key); err != nil {
			return fmt.Errorf("kv list clear: %w", err)
		}

		return nil
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM kv_list_entries
		 WHERE key = $1 AND id NOT IN (
			SELECT id FROM kv_list_entries WHERE key = $1 ORDER BY id OFFSET $2 LIMIT $3
		 )`,
		key, from, to-from,
	)
	if err != nil {
		return fmt.Errorf("kv list trim: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	n, err := s.listLen(ctx, key)
	if err != nil {
		return nil, err
	}

	from, to, ok := resolveRange(start, stop, n)
	if !ok {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT value FROM kv_list_entries WHERE key = $1 ORDER BY id OFFSET $2 LIMIT $3`,
		key, from, to-from,
	)
	if err != nil {
		return nil, fmt.Errorf("kv list range: %w", err)
	}
	defer rows.Close()

	var values []string

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan list value: %w", err)
		}

		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list values: %w", err)
	}

	return values, nil
}

func (s *PostgresStore) listLen(ctx context.Context, key string) (int, error) {
	var n int

	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kv_list_entries WHERE key = $1`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("kv list len: %w", err)
	}

	return n, nil
}

// Cleanup deletes expired TTL keys. Run periodically; expired keys are
// already invisible to Exists, so this only reclaims space.
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE expires_at <= now()`)
	if err != nil {
		return fmt.Errorf("kv cleanup: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
