package storage

import (
	"encoding/json"
	"time"
)

// Record is one persisted history entry. Seq is assigned by the store and
// increases across all kinds.
type Record struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	Key     string          `json:"key"`
	Time    time.Time       `json:"time"`
	Line    string          `json:"line"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Appender accepts history records.
type Appender interface {
	Append(rec Record) (Record, error)
}

// RecordStore is an Appender that can be queried back.
type RecordStore interface {
	Appender
	// Recent returns up to n records of kind, newest first.
	Recent(kind string, n int) ([]Record, error)
	Close() error
}
