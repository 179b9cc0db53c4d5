package storage

import (
	"fmt"

	"github.com/404-LAB/otcledger/pkg/ledger"
)

// Pebble key schema.
// Numeric suffixes are zero-padded (20 digits) so lexicographic iteration
// matches numeric ordering, which keeps event replay and listing scans in key
// order without sorting.

const (
	prefixEvent = "evt:" // Event journal, keyed by sequence number
	prefixOffer = "off:" // Offer snapshots, keyed by listing key
	prefixOrder = "ord:" // Order snapshots, keyed by listing key
)

// eventKey returns the key for an event.
// Format: "evt:{seq}" with seq zero-padded.
func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvent, seq))
}

// listingKey returns the key for a listing snapshot.
// Format: "off:{id}" or "ord:{id}" with id zero-padded.
func listingKey(kind ledger.Kind, id uint64) []byte {
	prefix := prefixOffer
	if kind == ledger.KindOrder {
		prefix = prefixOrder
	}
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
