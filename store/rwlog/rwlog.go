// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package rwlog wraps a store to capture the exact dependency footprint of
// one execution: the set of keys it read and the set of keys it wrote.
// Two captured footprints can then be checked for conflicting overlap at a
// coordination point outside the store, enabling optimistic concurrency or
// minimal-witness proof construction.
package rwlog

import (
	"bytes"

	"github.com/strata-db/strata/store"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Log records every key read or written through it before delegating to
// the wrapped store. Reads are recorded whether or not they hit. The log
// assumes strictly sequential use within one execution; it performs no
// locking of its own.
type Log struct {
	inner  store.KeyValueStore
	reads  map[string]struct{}
	writes map[string]struct{}
}

// New wraps the given store with an empty read/write log.
func New(inner store.KeyValueStore) *Log {
	return &Log{
		inner:  inner,
		reads:  make(map[string]struct{}),
		writes: make(map[string]struct{}),
	}
}

func (l *Log) Get(key []byte) ([]byte, bool, error) {
	l.reads[string(key)] = struct{}{}
	return l.inner.Get(key)
}

// GetNext records both the probed key and the key of the returned entry;
// an ordered scan depends on the whole probed gap, and the two ends are
// the closest sound approximation a key-set footprint can capture.
func (l *Log) GetNext(key []byte) (*store.Entry, error) {
	l.reads[string(key)] = struct{}{}
	entry, err := l.inner.GetNext(key)
	if entry != nil {
		l.reads[string(entry.Key)] = struct{}{}
	}
	return entry, err
}

func (l *Log) GetPrev(key []byte) (*store.Entry, error) {
	if key != nil {
		l.reads[string(key)] = struct{}{}
	}
	entry, err := l.inner.GetPrev(key)
	if entry != nil {
		l.reads[string(entry.Key)] = struct{}{}
	}
	return entry, err
}

func (l *Log) Put(key, value []byte) error {
	l.writes[string(key)] = struct{}{}
	return l.inner.Put(key, value)
}

func (l *Log) Delete(key []byte) error {
	l.writes[string(key)] = struct{}{}
	return l.inner.Delete(key)
}

// Sets is the captured footprint of one execution, with both key sets in
// ascending order.
type Sets struct {
	Reads  [][]byte
	Writes [][]byte
}

// Finish consumes the log, returning the captured footprint and the
// wrapped store. The log must not be used afterwards.
func (l *Log) Finish() (Sets, store.KeyValueStore) {
	sets := Sets{
		Reads:  sortedKeys(l.reads),
		Writes: sortedKeys(l.writes),
	}
	inner := l.inner
	l.inner = nil
	l.reads = nil
	l.writes = nil
	return sets, inner
}

// Conflicts reports whether the two footprints cannot be serialized in
// either order: one execution wrote a key the other read or wrote.
func (s Sets) Conflicts(other Sets) bool {
	return intersects(s.Writes, other.Reads) ||
		intersects(s.Writes, other.Writes) ||
		intersects(s.Reads, other.Writes)
}

func sortedKeys(set map[string]struct{}) [][]byte {
	keys := maps.Keys(set)
	slices.Sort(keys)
	res := make([][]byte, len(keys))
	for i, k := range keys {
		res[i] = []byte(k)
	}
	return res
}

// intersects checks two ascending key lists for a common element.
func intersects(a, b [][]byte) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch bytes.Compare(a[i], b[j]) {
		case 0:
			return true
		case -1:
			i++
		default:
			j++
		}
	}
	return false
}
