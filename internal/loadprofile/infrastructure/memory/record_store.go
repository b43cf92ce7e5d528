package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// RecordStore is an in-memory record store for dry runs and tests.
type RecordStore struct {
	mu      sync.RWMutex
	tables  map[string][]loadprofile.Record
	staging map[*recordBatch]struct{}
	pingErr error
}

// NewRecordStore constructs an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		tables:  make(map[string][]loadprofile.Record),
		staging: make(map[*recordBatch]struct{}),
	}
}

// FailPing makes Ping return err, simulating an unreachable store.
func (s *RecordStore) FailPing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Ping reports the configured availability.
func (s *RecordStore) Ping(ctx context.Context) error {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

// Seed replaces a table directly.
func (s *RecordStore) Seed(table string, records []loadprofile.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append([]loadprofile.Record(nil), records...)
}

// PendingBatches returns the number of batches neither committed nor aborted.
func (s *RecordStore) PendingBatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.staging)
}

// BeginReplace starts a staged replacement of table.
func (s *RecordStore) BeginReplace(ctx context.Context, table string) (loadprofile.RecordBatch, error) {
	_ = ctx
	if table == "" {
		return nil, loadprofile.ErrEmptyTable
	}
	batch := &recordBatch{store: s, table: table}
	s.mu.Lock()
	s.staging[batch] = struct{}{}
	s.mu.Unlock()
	return batch, nil
}

// QueryAll returns the table ordered by time, then series.
func (s *RecordStore) QueryAll(ctx context.Context, table string) ([]loadprofile.Record, error) {
	_ = ctx
	if table == "" {
		return nil, loadprofile.ErrEmptyTable
	}
	s.mu.RLock()
	records, ok := s.tables[table]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New("memory record store: table not found: " + table)
	}
	out := append([]loadprofile.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].SeriesID < out[j].SeriesID
	})
	return out, nil
}

type recordBatch struct {
	store   *RecordStore
	table   string
	records []loadprofile.Record
	done    bool
}

var errBatchDone = errors.New("memory record store: batch already finished")

func (b *recordBatch) Append(ctx context.Context, records []loadprofile.Record) error {
	_ = ctx
	if b.done {
		return errBatchDone
	}
	b.records = append(b.records, records...)
	return nil
}

func (b *recordBatch) Commit(ctx context.Context) error {
	_ = ctx
	if b.done {
		return errBatchDone
	}
	b.done = true
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.staging, b)
	b.store.tables[b.table] = b.records
	return nil
}

func (b *recordBatch) Abort(ctx context.Context) error {
	_ = ctx
	if b.done {
		return nil
	}
	b.done = true
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.staging, b)
	return nil
}
