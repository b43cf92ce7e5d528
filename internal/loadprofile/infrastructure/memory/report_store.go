package memory

import (
	"context"
	"sync"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// ReportStore keeps the last replaced version of each report table.
type ReportStore struct {
	mu     sync.RWMutex
	tables map[string]loadprofile.Table
}

// NewReportStore constructs an empty store.
func NewReportStore() *ReportStore {
	return &ReportStore{tables: make(map[string]loadprofile.Table)}
}

// ReplaceTables swaps in every table; a table with an empty name fails the whole call.
func (s *ReportStore) ReplaceTables(ctx context.Context, tables []loadprofile.Table) error {
	_ = ctx
	for _, t := range tables {
		if t.Name == "" {
			return loadprofile.ErrEmptyTable
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tables {
		s.tables[t.Name] = t
	}
	return nil
}

// Table returns a stored table.
func (s *ReportStore) Table(name string) (loadprofile.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}
