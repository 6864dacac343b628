package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// PebbleStore persists history records in a pebble database.
type PebbleStore struct {
	mu  sync.Mutex // guards seq
	db  *pebble.DB
	seq uint64
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}

	s := &PebbleStore{db: db}
	val, closer, err := db.Get([]byte(keyLastSeq))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("load sequence: %w", err)
	default:
		s.seq = decodeSeq(val)
		closer.Close()
	}
	return s, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// LastSeq returns the last sequence number handed out.
func (s *PebbleStore) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Append assigns the next sequence (and an id if missing) and writes the
// record together with the sequence counter in one batch.
func (s *PebbleStore) Append(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Seq = s.seq + 1
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	val, err := encodeRecord(rec)
	if err != nil {
		return Record{}, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(recordKey(rec.Kind, rec.Seq), val, nil); err != nil {
		return Record{}, fmt.Errorf("stage record: %w", err)
	}
	if err := b.Set([]byte(keyLastSeq), encodeSeq(rec.Seq), nil); err != nil {
		return Record{}, fmt.Errorf("stage sequence: %w", err)
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return Record{}, fmt.Errorf("save record: %w", err)
	}

	s.seq = rec.Seq
	return rec, nil
}

// Recent loads the newest n records of kind.
func (s *PebbleStore) Recent(kind string, n int) ([]Record, error) {
	prefix := recordPrefix(kind)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer iter.Close()

	var out []Record
	for iter.Last(); iter.Valid() && len(out) < n; iter.Prev() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			continue // skip invalid entries
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

var _ RecordStore = (*PebbleStore)(nil)
