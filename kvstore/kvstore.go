// Package kvstore defines the external collaborator boundary the
// coprocessor core consumes from the MVCC storage layer beneath it (spec
// §6 "Snapshot interface"): a point-in-time Snapshot that can open a
// directional StoreScanner or serve a single point Get, each threading an
// explicitly-owned StatsSink.
//
// Grounded on the teacher's own storage-abstraction idiom
// (database/database.go's Database interface: a small method set wrapping
// a concrete backend, implemented once per real database and swapped in
// by the caller); here the interface wraps an MVCC snapshot instead of a
// SQL connection, and the core never sees a concrete implementation.
package kvstore

import "github.com/pingcap/kvproto/pkg/coprocessor"

// Direction selects which way a StoreScanner walks its key range.
type Direction int8

const (
	Forward Direction = iota
	Backward
)

// StatsSink accumulates scan/get statistics produced by the underlying
// store. Ownership is transferred explicitly rather than aliased: a
// caller that hands a sink to a Snapshot.Scanner gives it up until the
// returned StoreScanner.Close reclaims it (spec §3 "Lifecycles",
// §8 "Cyclic lifetime between scanner and statistics sink").
type StatsSink interface {
	// AddScanned records one key observed during a range/point lookup.
	AddScanned(n int)
	// AddProcessed records one key whose value was actually returned.
	AddProcessed(n int)
}

// KV is a single raw key/value pair returned by a StoreScanner.
type KV struct {
	Key   []byte
	Value []byte
}

// StoreScanner iterates the keys visible in one MVCC snapshot, in the
// direction it was opened with (spec §4.1, §6 "StoreScanner::seek /
// reverse_seek").
type StoreScanner interface {
	// Seek advances forward to the first key >= key, returning it along
	// with its value, or (KV{}, false, nil) if none remains before the
	// scanner's upper bound.
	Seek(key []byte) (KV, bool, error)
	// ReverseSeek advances backward to the last key < key, returning it
	// along with its value, or (KV{}, false, nil) if none remains.
	ReverseSeek(key []byte) (KV, bool, error)
	// Close releases the scanner's resources and returns ownership of
	// the StatsSink supplied at construction.
	Close() StatsSink
}

// Snapshot is a point-in-time, read-only view over the MVCC key space.
type Snapshot interface {
	// Scanner opens a directional StoreScanner bounded above by
	// upperBound (nil means unbounded; only meaningful for Forward,
	// matching the teacher source's "no upper bound on a backward
	// scan, the seek key itself is the bound" behavior). keyOnly, when
	// true, instructs the store to return empty values (the key is
	// still authoritative). Ownership of sink passes to the returned
	// scanner; the caller reclaims it via StoreScanner.Close.
	Scanner(direction Direction, keyOnly bool, upperBound []byte, sink StatsSink) (StoreScanner, error)
	// Get performs a point lookup against the snapshot directly,
	// without opening a scanner.
	Get(key []byte, sink StatsSink) ([]byte, bool, error)
}
