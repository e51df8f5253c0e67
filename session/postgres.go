package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatgate/obo-identity/core"
)

// DefaultPostgresTable is the table used when none is configured.
const DefaultPostgresTable = "identity_sessions"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores sessions as JSONB rows.
type PostgresStore struct {
	db    DB
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewPostgresStore returns a store on db. An empty table defaults to
// DefaultPostgresTable; a zero ttl stores sessions without expiry.
func NewPostgresStore(db DB, table string, ttl time.Duration) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres db is required")
	}
	if table == "" {
		table = DefaultPostgresTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid postgres table name: %s", table)
	}
	return &PostgresStore{db: db, table: table, ttl: ttl, now: time.Now}, nil
}

// ConnectPostgres opens a pool for databaseURL and pings it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return pool, nil
}

// EnsureTable creates the session table if it does not exist.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		expires_at TIMESTAMPTZ
	)`, s.table)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}
	createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_expires_idx ON %s (expires_at)", s.table, s.table)
	if _, err := s.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at < $1", s.table)
	tag, err := s.db.Exec(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Get loads a live session.
func (s *PostgresStore) Get(ctx context.Context, id string) (*core.Session, error) {
	var (
		payload []byte
		expires *time.Time
	)
	query := fmt.Sprintf("SELECT data, expires_at FROM %s WHERE id = $1", s.table)
	err := s.db.QueryRow(ctx, query, id).Scan(&payload, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if expires != nil && !s.now().Before(*expires) {
		return nil, ErrNotFound
	}

	var sess core.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save upserts the session and restarts its TTL.
func (s *PostgresStore) Save(ctx context.Context, sess *core.Session) error {
	if err := validate(sess); err != nil {
		return err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	var expires *time.Time
	if s.ttl > 0 {
		t := s.now().Add(s.ttl)
		expires = &t
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`, s.table)
	if _, err := s.db.Exec(ctx, query, sess.ID, payload, expires); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table)
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
