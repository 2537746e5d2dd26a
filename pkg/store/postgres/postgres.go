// Package postgres provides a PostgreSQL-backed conversation store.
// It uses pgx/v5 for connection pooling and JSONB for response
// payloads. Saving a turn and advancing the thread head happen in one
// transaction so readers never observe a head without its turn.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/store"
)

// Store is a PostgreSQL-backed conversation store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// New creates a PostgreSQL store with the given configuration. If
// MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveTurn inserts the turn and advances the thread head atomically.
func (s *Store) SaveTurn(ctx context.Context, turn *store.Turn) error {
	var respJSON []byte
	if turn.Response != nil {
		var err error
		respJSON, err = json.Marshal(turn.Response)
		if err != nil {
			return fmt.Errorf("marshaling response: %w", err)
		}
	}

	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO turns (response_id, thread_id, parent_id, model, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, turn.ResponseID, turn.ThreadID, nullString(turn.ParentID), turn.Model, nullJSON(respJSON), createdAt)
	if err != nil {
		if isDuplicateKey(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("inserting turn: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO thread_heads (thread_id, response_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (thread_id) DO UPDATE SET response_id = EXCLUDED.response_id, updated_at = now()
	`, turn.ThreadID, turn.ResponseID)
	if err != nil {
		return fmt.Errorf("updating thread head: %w", err)
	}

	return tx.Commit(ctx)
}

// Turn retrieves a stored turn by response id.
func (s *Store) Turn(ctx context.Context, responseID string) (*store.Turn, error) {
	var (
		turn     store.Turn
		parentID *string
		respJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT response_id, thread_id, parent_id, model, response, created_at
		FROM turns
		WHERE response_id = $1
	`, responseID).Scan(&turn.ResponseID, &turn.ThreadID, &parentID, &turn.Model, &respJSON, &turn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying turn: %w", err)
	}

	if parentID != nil {
		turn.ParentID = *parentID
	}
	if len(respJSON) > 0 {
		var resp api.Response
		if err := json.Unmarshal(respJSON, &resp); err != nil {
			return nil, fmt.Errorf("unmarshaling response: %w", err)
		}
		turn.Response = &resp
	}

	return &turn, nil
}

// Head returns the most recent response id of a thread.
func (s *Store) Head(ctx context.Context, threadID string) (string, error) {
	var head string
	err := s.pool.QueryRow(ctx,
		"SELECT response_id FROM thread_heads WHERE thread_id = $1",
		threadID,
	).Scan(&head)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying thread head: %w", err)
	}
	return head, nil
}

// SetHead points a thread at an already stored response id. The
// foreign key on thread_heads enforces that the turn exists.
func (s *Store) SetHead(ctx context.Context, threadID, responseID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO thread_heads (thread_id, response_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (thread_id) DO UPDATE SET response_id = EXCLUDED.response_id, updated_at = now()
	`, threadID, responseID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("setting thread head: %w", err)
	}
	return nil
}

// Threads lists known thread ids in lexical order.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT thread_id FROM thread_heads ORDER BY thread_id")
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteThread removes a thread and all of its turns. The head row
// goes with them via ON DELETE CASCADE.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM turns WHERE thread_id = $1", threadID)
	if err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey reports whether err is a unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a foreign key violation (23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
