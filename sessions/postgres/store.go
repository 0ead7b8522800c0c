// Package postgres provides PostgreSQL storage for sessions.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/sessions"
)

// upsertSuffix merges the patch into a live row per field; null values delete a
// field. An expired row is replaced rather than merged.
const upsertSuffix = `ON CONFLICT (id) DO UPDATE SET
	data = CASE WHEN sessions.expires_at > NOW()
		THEN jsonb_strip_nulls(sessions.data || EXCLUDED.data)
		ELSE jsonb_strip_nulls(EXCLUDED.data) END,
	expires_at = EXCLUDED.expires_at`

// Store implements sessions.Store using PostgreSQL.
type Store struct {
	db  *sql.DB
	psq sq.StatementBuilderType
	now func() time.Time
}

var _ sessions.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		psq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
}

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func (s *Store) Load(ctx context.Context, id string) (map[string]string, error) {
	query, args, err := s.psq.Select("data").
		From("sessions").
		Where(sq.Eq{"id": id}).
		Where("expires_at > NOW()").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	var raw []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w: %w", apperrors.ErrSessionIO, err)
	}

	fields := make(map[string]*string)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding session data: %w: %w", apperrors.ErrSessionIO, err)
	}
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != nil {
			values[k] = *v
		}
	}
	return values, nil
}

func (s *Store) Save(ctx context.Context, id string, set map[string]string, unset []string, ttl time.Duration) error {
	patch := make(map[string]any, len(set)+len(unset))
	for _, k := range unset {
		patch[k] = nil
	}
	for k, v := range set {
		patch[k] = v
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding session data: %w", err)
	}

	query, args, err := s.psq.Insert("sessions").
		Columns("id", "data", "expires_at").
		Values(id, sq.Expr("?::jsonb", string(data)), s.now().Add(ttl)).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving session: %w: %w", apperrors.ErrSessionIO, err)
	}
	return nil
}

func (s *Store) Destroy(ctx context.Context, id string) error {
	query, args, err := s.psq.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w: %w", apperrors.ErrSessionIO, err)
	}
	return nil
}

// Cleanup removes expired sessions and reports how many were deleted.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	query, args, err := s.psq.Delete("sessions").Where("expires_at <= NOW()").ToSql()
	if err != nil {
		return 0, fmt.Errorf("building cleanup: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleaning up sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RunCleanup deletes expired sessions every interval until ctx is cancelled.
func (s *Store) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Cleanup(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session cleanup failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired sessions removed")
			}
		}
	}
}
