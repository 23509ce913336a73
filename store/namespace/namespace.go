// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package namespace partitions one physical keyspace into many independent
// logical stores by assigning each of them a one-byte key prefix, in the
// spirit of table spaces sharing a single key-value database. Namespaces
// nest; a substore is itself a KeyValueStore and can be split further,
// which prepends one more prefix byte per nesting level.
package namespace

import (
	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/store"
)

// Splitter hands out substores of a shared backing store, each bound to
// the next unused prefix byte. At most 256 substores can be allocated;
// the prefix assignment is fixed for the lifetime of the splitter.
type Splitter struct {
	backing store.KeyValueStore
	next    int
}

// NewSplitter creates a splitter partitioning the given store.
func NewSplitter(backing store.KeyValueStore) *Splitter {
	return &Splitter{backing: backing}
}

// Split allocates the next unused prefix byte and returns the substore
// bound to it. It fails with common.ErrNamespaceExhausted once all 256
// prefixes are taken.
func (s *Splitter) Split() (*Substore, error) {
	if s.next > 0xff {
		return nil, common.ErrNamespaceExhausted
	}
	sub := &Substore{backing: s.backing, prefix: byte(s.next)}
	s.next++
	return sub, nil
}

// Substore is the view of one namespace of a shared backing store. Every
// operation prepends the prefix byte to the logical key before delegating,
// so two substores with different prefixes never observe each other's
// entries.
type Substore struct {
	backing store.KeyValueStore
	prefix  byte
}

// NewPrefixed binds a substore to a caller-chosen prefix byte instead of
// an allocated one. The caller is responsible for keeping hand-picked
// prefixes from colliding with a Splitter over the same store.
func NewPrefixed(backing store.KeyValueStore, prefix byte) *Substore {
	return &Substore{backing: backing, prefix: prefix}
}

// Prefix returns the namespace byte of this substore.
func (s *Substore) Prefix() byte {
	return s.prefix
}

// Split returns a splitter partitioning this namespace further.
func (s *Substore) Split() *Splitter {
	return NewSplitter(s)
}

func (s *Substore) physical(key []byte) []byte {
	res := make([]byte, 0, len(key)+1)
	res = append(res, s.prefix)
	return append(res, key...)
}

// strip converts a physical entry back to the logical view, or reports
// that the entry lies outside this namespace.
func (s *Substore) strip(entry *store.Entry) *store.Entry {
	if entry == nil || len(entry.Key) == 0 || entry.Key[0] != s.prefix {
		return nil
	}
	return &store.Entry{Key: entry.Key[1:], Value: entry.Value}
}

func (s *Substore) Get(key []byte) ([]byte, bool, error) {
	return s.backing.Get(s.physical(key))
}

func (s *Substore) GetNext(key []byte) (*store.Entry, error) {
	entry, err := s.backing.GetNext(s.physical(key))
	if err != nil {
		return nil, err
	}
	return s.strip(entry), nil
}

func (s *Substore) GetPrev(key []byte) (*store.Entry, error) {
	var bound []byte
	switch {
	case key != nil:
		bound = s.physical(key)
	case s.prefix < 0xff:
		// Everything below the next prefix byte is the end of this
		// namespace.
		bound = []byte{s.prefix + 1}
	default:
		bound = nil // the namespace reaches the end of the keyspace
	}
	entry, err := s.backing.GetPrev(bound)
	if err != nil {
		return nil, err
	}
	return s.strip(entry), nil
}

func (s *Substore) Put(key, value []byte) error {
	return s.backing.Put(s.physical(key), value)
}

func (s *Substore) Delete(key []byte) error {
	return s.backing.Delete(s.physical(key))
}
