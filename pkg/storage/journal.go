// Package storage persists committed ledger facts in Pebble: an append-only
// event journal plus the latest snapshot of every listing. The ledger itself
// stays the source of truth while running; the journal exists for audit,
// indexing, and reload after restart.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/404-LAB/otcledger/pkg/ledger"
)

// Journal is a Pebble-backed implementation of the ledger's Journal interface.
// Thread-safe: the ledger serializes writes through its guard, and Pebble
// handles concurrent reads.
type Journal struct {
	db *pebble.DB
}

// Open opens (or creates) the journal database at the given path.
func Open(path string) (*Journal, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
		MaxOpenFiles: 1000,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// AppendEvent persists one event under its sequence number.
func (j *Journal) AppendEvent(e ledger.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := j.db.Set(eventKey(e.Seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to append event %d: %w", e.Seq, err)
	}
	return nil
}

// SaveListing persists the latest snapshot of a listing.
func (j *Journal) SaveListing(l ledger.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := j.db.Set(listingKey(l.Kind, l.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save %s %d: %w", l.Kind, l.ID, err)
	}
	return nil
}

// LoadListing loads a listing snapshot. Returns nil if none exists.
func (j *Journal) LoadListing(kind ledger.Kind, id uint64) (*ledger.Listing, error) {
	data, closer, err := j.db.Get(listingKey(kind, id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, err)
	}
	defer closer.Close()

	var l ledger.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %d: %w", kind, id, err)
	}
	return &l, nil
}

// Events replays up to limit journaled events starting at fromSeq, in
// sequence order. limit <= 0 means no limit.
func (j *Journal) Events(fromSeq uint64, limit int) ([]ledger.Event, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(fromSeq),
		UpperBound: keyUpperBound([]byte(prefixEvent)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open event iterator: %w", err)
	}
	defer iter.Close()

	var events []ledger.Event
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(events) >= limit {
			break
		}
		var e ledger.Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue // Skip invalid entries
		}
		events = append(events, e)
	}
	return events, nil
}

// Listings loads all persisted snapshots of one kind in key order.
func (j *Journal) Listings(kind ledger.Kind) ([]ledger.Listing, error) {
	prefix := []byte(prefixOffer)
	if kind == ledger.KindOrder {
		prefix = []byte(prefixOrder)
	}

	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open listing iterator: %w", err)
	}
	defer iter.Close()

	var out []ledger.Listing
	for iter.First(); iter.Valid(); iter.Next() {
		var l ledger.Listing
		if err := json.Unmarshal(iter.Value(), &l); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, l)
	}
	return out, nil
}

// LastSeq returns the highest journaled event sequence, or 0 when empty.
func (j *Journal) LastSeq() (uint64, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixEvent),
		UpperBound: keyUpperBound([]byte(prefixEvent)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open event iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	var e ledger.Event
	if err := json.Unmarshal(iter.Value(), &e); err != nil {
		return 0, fmt.Errorf("failed to unmarshal last event: %w", err)
	}
	return e.Seq, nil
}
