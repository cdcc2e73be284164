package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spigell/mentor-match/internal/matching"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a cohort has no stored run.
var ErrNotFound = errors.New("matching output not found")

const undefinedTable = "42P01"

const schema = `
CREATE TABLE IF NOT EXISTS cohort_matches (
	cohort_id  TEXT PRIMARY KEY,
	history_id UUID NOT NULL,
	matches    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS matching_history (
	id            UUID PRIMARY KEY,
	cohort_id     TEXT NOT NULL,
	mode          TEXT NOT NULL,
	model_version INTEGER NOT NULL,
	stats         JSONB NOT NULL,
	output        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS matching_history_cohort_idx ON matching_history (cohort_id, created_at DESC);
CREATE TABLE IF NOT EXISTS manual_matches (
	id         UUID PRIMARY KEY,
	cohort_id  TEXT NOT NULL,
	decisions  JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

const (
	upsertMatchesQuery = `INSERT INTO cohort_matches (cohort_id, history_id, matches, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (cohort_id) DO UPDATE SET history_id = EXCLUDED.history_id, matches = EXCLUDED.matches, updated_at = EXCLUDED.updated_at`
	insertHistoryQuery = `INSERT INTO matching_history (id, cohort_id, mode, model_version, stats, output, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	latestQuery        = `SELECT matches FROM cohort_matches WHERE cohort_id = $1`
	historyQuery       = `SELECT id, mode, model_version, stats, created_at FROM matching_history WHERE cohort_id = $1 ORDER BY created_at DESC LIMIT $2`
	outputQuery        = `SELECT output FROM matching_history WHERE id = $1`
	insertManualQuery  = `INSERT INTO manual_matches (id, cohort_id, decisions, created_at) VALUES ($1, $2, $3, $4)`
)

// HistoryEntry is a summary row of matching_history.
type HistoryEntry struct {
	ID           string
	Mode         matching.Mode
	ModelVersion int
	Stats        matching.Stats
	CreatedAt    time.Time
}

// Postgres persists matching outputs: the latest one per cohort and the full append-only history.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger

	NewID func() string
}

// Open connects to PostgreSQL with the lib/pq driver.
func Open(dsn string, logger *zap.Logger) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return New(db, logger), nil
}

func New(db *sql.DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		db:     db,
		logger: logger,
		NewID:  func() string { return uuid.New().String() },
	}
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveRun writes out as the cohort's current matches and appends it to the history in one transaction.
func (s *Postgres) SaveRun(ctx context.Context, out *matching.MatchingOutput) (string, error) {
	if out == nil {
		return "", errors.New("matching output is required")
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode matching output: %w", err)
	}
	stats, err := json.Marshal(out.Stats)
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}

	version := 0
	if out.Model != nil {
		version = out.Model.Version
	}

	id := s.NewID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertHistoryQuery, id, out.CohortID, string(out.Mode), version, stats, payload, out.Timestamp); err != nil {
		return "", wrapQueryError("insert matching history", err)
	}
	if _, err := tx.ExecContext(ctx, upsertMatchesQuery, out.CohortID, id, payload, out.Timestamp); err != nil {
		return "", wrapQueryError("update cohort matches", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("matching output stored",
		zap.String("history_id", id),
		zap.String("cohort_id", out.CohortID),
		zap.Int("bytes", len(payload)),
	)

	return id, nil
}

// Latest returns the cohort's current matches.
func (s *Postgres) Latest(ctx context.Context, cohortID string) (*matching.MatchingOutput, error) {
	return s.queryOutput(ctx, latestQuery, cohortID)
}

// Output returns one history entry in full.
func (s *Postgres) Output(ctx context.Context, historyID string) (*matching.MatchingOutput, error) {
	if _, err := uuid.Parse(historyID); err != nil {
		return nil, fmt.Errorf("invalid history id %q: %w", historyID, err)
	}
	return s.queryOutput(ctx, outputQuery, historyID)
}

func (s *Postgres) queryOutput(ctx context.Context, query, arg string) (*matching.MatchingOutput, error) {
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, arg)
		}
		return nil, wrapQueryError("load matching output", err)
	}

	var out matching.MatchingOutput
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode matching output: %w", err)
	}
	return &out, nil
}

// History lists the most recent runs of a cohort, newest first.
func (s *Postgres) History(ctx context.Context, cohortID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, historyQuery, cohortID, limit)
	if err != nil {
		return nil, wrapQueryError("list matching history", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e     HistoryEntry
			mode  string
			stats []byte
		)
		if err := rows.Scan(&e.ID, &mode, &e.ModelVersion, &stats, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal(stats, &e.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of %s: %w", e.ID, err)
		}
		e.Mode = matching.Mode(mode)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return entries, nil
}

// SaveManual stores the decisions of a review session.
func (s *Postgres) SaveManual(ctx context.Context, manual *matching.ManualMatchingOutput) (string, error) {
	if manual == nil {
		return "", errors.New("manual matching output is required")
	}

	payload, err := json.Marshal(manual)
	if err != nil {
		return "", fmt.Errorf("encode manual matches: %w", err)
	}

	id := s.NewID()
	if _, err := s.db.ExecContext(ctx, insertManualQuery, id, manual.CohortID, payload, manual.Timestamp); err != nil {
		return "", wrapQueryError("insert manual matches", err)
	}
	return id, nil
}

func wrapQueryError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%s: %w (run with --migrate to create the schema)", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
