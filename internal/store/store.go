// Package store persists analysis reports so they can be fetched by id
// after the request that produced them.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

var ErrMissingID = fmt.Errorf("%w: report has no id", apperrors.ErrInvalidInput)

// Summary is one row of a report listing.
type Summary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Generation uint64    `json:"dictionary_generation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store saves and loads reports. Get returns an error wrapping
// apperrors.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, r *report.Report) error
	Get(ctx context.Context, id string) (*report.Report, error)
	List(ctx context.Context, limit int) ([]Summary, error)
}

func summarize(r *report.Report) Summary {
	return Summary{ID: r.ID, Source: r.Source, Generation: r.Generation, CreatedAt: r.CreatedAt}
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", apperrors.ErrInvalidInput, limit)
	}
	return nil
}
