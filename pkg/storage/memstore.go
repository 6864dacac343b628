package storage

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process memory. Used when no database path
// is configured.
type MemoryStore struct {
	mu     sync.Mutex
	byKind map[string][]Record
	seq    uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKind: make(map[string][]Record)}
}

func (s *MemoryStore) Append(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec.Seq = s.seq
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.byKind[rec.Kind] = append(s.byKind[rec.Kind], rec)
	return rec, nil
}

func (s *MemoryStore) Recent(kind string, n int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.byKind[kind]
	out := make([]Record, 0, min(n, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ RecordStore = (*MemoryStore)(nil)
