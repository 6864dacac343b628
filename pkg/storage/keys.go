package storage

import (
	"fmt"
)

// Key schema:
//
//	rec:<kind>:<seq>  -> Record (seq zero-padded to 20 digits so keys sort numerically)
//	meta:seq          -> last assigned sequence (8-byte big endian)

const (
	prefixRecord = "rec:"
	keyLastSeq   = "meta:seq"
)

// recordKey returns the key for a record.
// Format: "rec:{kind}:{seq}"
func recordKey(kind string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixRecord, kind, seq))
}

// recordPrefix returns the prefix for all records of a kind.
// Format: "rec:{kind}:"
func recordPrefix(kind string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixRecord, kind))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
