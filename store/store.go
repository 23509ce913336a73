// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package store

//go:generate mockgen -source store.go -destination store_mocks.go -package store

// Entry is a single key/value pair held by a store.
type Entry struct {
	Key   []byte
	Value []byte
}

// KeyValueStore is the capability contract every store in this module
// implements or wraps. Keys and values are arbitrary byte sequences; keys
// are ordered lexicographically by byte value.
//
// Implementations are either base stores or wrap exactly one backing store
// and delegate to it. None of them is safe for concurrent mutation; one
// goroutine owns a composed store stack at a time.
type KeyValueStore interface {
	// Get returns the value stored for the given key. A missing key is
	// reported through the boolean result, not through an error.
	Get(key []byte) (value []byte, exists bool, err error)

	// GetNext returns the entry with the smallest key strictly greater
	// than the given key, or nil if there is none.
	GetNext(key []byte) (*Entry, error)

	// GetPrev returns the entry with the largest key strictly less than
	// the given key. A nil key means no upper bound, yielding the last
	// entry of the store. It returns nil if there is none.
	GetPrev(key []byte) (*Entry, error)

	// Put stores the given value under the given key, replacing any
	// previous value.
	Put(key, value []byte) error

	// Delete removes the entry stored for the given key. Deleting a
	// missing key is a no-op.
	Delete(key []byte) error
}

// Copy returns an owned copy of the given byte slice. Stores retain keys
// beyond the duration of a call and must not alias caller memory.
func Copy(b []byte) []byte {
	res := make([]byte, len(b))
	copy(res, b)
	return res
}
