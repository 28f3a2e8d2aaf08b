// Package cache memoizes replay results on disk, keyed by the trace file's
// identity and the SimOptions a replay ran with: a small key/value layer
// over badger/v4, opened once and read-mostly thereafter.
//
// The replay engine never writes back a modified trace file; this package
// never touches the trace file either. It exists purely so that interactive
// monitor tuning (sweeping --wmon-len or --emon-rank against the same
// trace) can skip recomputing a replay whose result was already cached.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// RankSummary is the per-rank clock-bank globals a replay produced, enough
// to reconstruct the stdout summary and the aggregated-profile report
// without re-running the replay.
type RankSummary struct {
	Elapsed  float64
	Traced   float64
	Flush    float64
	Useful   float64
	Critical float64
}

// Result is what gets memoized for one (trace file, SimOptions) key: every
// rank's final clock totals plus the critical time annotated onto every
// event, in rank-major, then-event-index order.
type Result struct {
	PerRank   []RankSummary
	EventCrit [][]float64
	Aborted   bool
}

// Store is the interface the CLI consults before and populates after a
// replay. Disabled is the zero-cost default; Badger is the on-disk
// implementation.
type Store interface {
	Get(key string) (*Result, bool, error)
	Put(key string, r *Result) error
	Close() error
}

// Disabled is a Store that never hits and silently drops every Put: replay
// semantics never depend on whether a cache is attached.
type Disabled struct{}

func (Disabled) Get(string) (*Result, bool, error) { return nil, false, nil }
func (Disabled) Put(string, *Result) error         { return nil }
func (Disabled) Close() error                      { return nil }

// Badger is a Store backed by a badger/v4 database at a fixed path, mirroring
// BadgerStore's open-with-tuned-options shape (datalog/storage/badger_store.go)
// scaled down for a small read-mostly key space instead of a multi-index
// datom store.
type Badger struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at path for replay-result
// memoization.
func Open(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueThreshold = 1 << 10 // small gob-encoded values live in the LSM tree

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open badger at %s: %w", path, err)
	}
	return &Badger{db: db}, nil
}

// Get looks up key and gob-decodes the stored Result, if present.
func (b *Badger) Get(key string) (*Result, bool, error) {
	var res Result
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return gobDecode(val, &res)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if !found {
		return nil, false, nil
	}
	return &res, true, nil
}

// Put gob-encodes r and stores it under key.
func (b *Badger) Put(key string, r *Result) error {
	val, err := gobEncode(r)
	if err != nil {
		return fmt.Errorf("cache: encode result for %s: %w", key, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying badger database.
func (b *Badger) Close() error { return b.db.Close() }

// Key derives a stable cache key from the trace file's path, size, and
// modification time, plus the SimOptions the replay ran with. optsFields is
// a caller-supplied summary string (e.g.
// "eager=32768,trace=false,flush=true,disabled=false") rather
// than a replay.SimOptions value directly, keeping this package free of a
// dependency on the replay package.
func Key(path string, size int64, mtimeUnixNS int64, optsFields string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s", path, size, mtimeUnixNS, optsFields)
	return hex.EncodeToString(h.Sum(nil))
}

// StatKeyInputs reads path's size and modification time for use with Key,
// returning an error if the file cannot be stat'd (e.g. a missing input
// file, a fatal configuration error the caller should report and exit on).
func StatKeyInputs(path string) (size int64, mtimeUnixNS int64, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("cache: stat %s: %w", path, err)
	}
	return fi.Size(), fi.ModTime().UnixNano(), nil
}

func gobEncode(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, into *Result) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(into)
}
