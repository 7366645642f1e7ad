package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/postgres"
)

// Schema creates the reports table. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_reports (
	    id          TEXT PRIMARY KEY,
	    source      TEXT NOT NULL DEFAULT '',
	    generation  BIGINT NOT NULL,
	    data        JSONB NOT NULL,
	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS analysis_reports_created_at_idx
	    ON analysis_reports (created_at DESC)`,
}

// PostgresStore keeps reports in the analysis_reports table as JSONB.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgres creates a PostgresStore and applies Schema.
func NewPostgres(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if err := db.Migrate(ctx, Schema...); err != nil {
		return nil, fmt.Errorf("migrating report store: %w", err)
	}
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}, nil
}

// Save inserts r, replacing any earlier report with the same id.
func (s *PostgresStore) Save(ctx context.Context, r *report.Report) error {
	if r.ID == "" {
		return ErrMissingID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analysis_reports (id, source, generation, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET source = EXCLUDED.source, generation = EXCLUDED.generation,
		     data = EXCLUDED.data, created_at = EXCLUDED.created_at`,
		r.ID, r.Source, int64(r.Generation), data, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving report %s: %w", r.ID, err)
	}
	s.logger.Debug("report saved", "id", r.ID, "bytes", len(data))
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*report.Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analysis_reports WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", id, err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling report %s: %w", id, err)
	}
	return &r, nil
}

// List returns up to limit summaries, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, source, generation, created_at FROM analysis_reports
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var (
			sum Summary
			gen int64
		)
		if err := rows.Scan(&sum.ID, &sum.Source, &gen, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		sum.Generation = uint64(gen)
		out = append(out, sum)
	}
	return out, rows.Err()
}
