package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

// MemoryStore keeps the most recent reports in process. It is used when no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	reports  map[string]*report.Report
	order    []string // oldest first
}

// NewMemory creates a MemoryStore holding at most capacity reports.
func NewMemory(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		capacity: capacity,
		reports:  make(map[string]*report.Report),
	}
}

func (s *MemoryStore) Save(_ context.Context, r *report.Report) error {
	if r.ID == "" {
		return ErrMissingID
	}
	cp := *r
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; ok {
		s.remove(r.ID)
	}
	s.reports[r.ID] = &cp
	s.order = append(s.order, r.ID)
	for len(s.order) > s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) remove(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", apperrors.ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

// List returns up to limit summaries, most recently saved first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(limit, len(s.order))
	out := make([]Summary, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, summarize(s.reports[s.order[i]]))
	}
	return out, nil
}
