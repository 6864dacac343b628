// Package history records the output of the desk's terminal services.
package history

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/storage"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// Entry is the latest persisted value for a key.
type Entry[V any] struct {
	Key    string         `json:"key"`
	Value  V              `json:"value"`
	Record storage.Record `json:"record"`
}

// Config describes one kind of history. Kind names the record stream and,
// by default, its output file. Store, when set, also receives every record
// and answers Recent.
type Config[V any] struct {
	Kind      string
	KeyOf     func(V) string
	Format    func(V) string
	Store     storage.RecordStore
	Appenders []storage.Appender
	Clock     util.Clock
	Logger    *zap.SugaredLogger
}

// Service keeps the latest value per key and appends a record for every
// value it is given.
type Service[V any] struct {
	*soa.Store[string, Entry[V]]

	kind      string
	keyOf     func(V) string
	format    func(V) string
	store     storage.RecordStore
	appenders []storage.Appender
	clock     util.Clock
	logger    *zap.SugaredLogger
}

func NewService[V any](cfg Config[V]) *Service[V] {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Format == nil {
		cfg.Format = func(v V) string { return fmt.Sprint(v) }
	}
	return &Service[V]{
		Store:     soa.NewStore(func(e Entry[V]) string { return e.Key }),
		kind:      cfg.Kind,
		keyOf:     cfg.KeyOf,
		format:    cfg.Format,
		store:     cfg.Store,
		appenders: cfg.Appenders,
		clock:     cfg.Clock,
		logger:    util.OrNop(cfg.Logger),
	}
}

func (s *Service[V]) Kind() string { return s.kind }

// PersistData records v under key and notifies listeners with the entry.
func (s *Service[V]) PersistData(key string, v V) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", s.kind, key, err)
	}
	rec := storage.Record{
		Kind:    s.kind,
		Key:     key,
		Time:    s.clock.Now(),
		Line:    s.format(v),
		Payload: payload,
	}

	if s.store != nil {
		if rec, err = s.store.Append(rec); err != nil {
			s.logger.Warnw("history_persist_failed", "kind", s.kind, "key", key, "err", err)
			return fmt.Errorf("persist %s %s: %w", s.kind, key, err)
		}
	}
	for _, a := range s.appenders {
		if _, err := a.Append(rec); err != nil {
			s.logger.Warnw("history_persist_failed", "kind", s.kind, "key", key, "err", err)
			return fmt.Errorf("persist %s %s: %w", s.kind, key, err)
		}
	}

	return s.OnMessage(Entry[V]{Key: key, Value: v, Record: rec})
}

// Latest returns the last value persisted under key.
func (s *Service[V]) Latest(key string) (V, error) {
	e, err := s.GetData(key)
	return e.Value, err
}

// Recent returns up to n records of this kind, newest first. It returns
// nothing when the service has no queryable store.
func (s *Service[V]) Recent(n int) ([]storage.Record, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(s.kind, n)
}

// ProcessAdd persists v under its natural key so the service can be added
// directly as a listener.
func (s *Service[V]) ProcessAdd(v V) error {
	return s.PersistData(s.keyOf(v), v)
}
