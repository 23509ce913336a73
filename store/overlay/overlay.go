// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package overlay

import (
	"bytes"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/strata-db/strata/store"
)

// pending is one buffered write. A tombstone marks a deletion that is still
// waiting to be flushed, which is different from the key never having been
// written.
type pending struct {
	value     []byte
	tombstone bool
}

// Overlay is an in-memory copy-on-write layer over a backing store. All
// writes stay in the overlay until Flush applies them to the backing store
// in one pass; Discard throws them away instead. Reads and ordered scans
// see the merged view, with overlay entries shadowing the backing store
// for the same key.
type Overlay struct {
	backing store.KeyValueStore
	pending *redblacktree.Tree
}

func byteSliceComparator(a, b interface{}) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

// New creates an overlay buffering writes on top of the given store.
func New(backing store.KeyValueStore) *Overlay {
	return &Overlay{
		backing: backing,
		pending: redblacktree.NewWith(byteSliceComparator),
	}
}

// NewMapStore creates an ephemeral in-memory store, an overlay over the
// always-empty null store. Flushing it discards the data.
func NewMapStore() *Overlay {
	return New(store.NullStore{})
}

func (o *Overlay) Get(key []byte) ([]byte, bool, error) {
	if v, ok := o.pending.Get(key); ok {
		p := v.(pending)
		if p.tombstone {
			return nil, false, nil
		}
		return store.Copy(p.value), true, nil
	}
	return o.backing.Get(key)
}

func (o *Overlay) Put(key, value []byte) error {
	o.pending.Put(store.Copy(key), pending{value: store.Copy(value)})
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	o.pending.Put(store.Copy(key), pending{tombstone: true})
	return nil
}

// nextPending returns the smallest buffered entry with a key strictly
// greater than the given one.
func (o *Overlay) nextPending(after []byte) ([]byte, pending, bool) {
	// The immediate lexicographic successor of a key is the key with a
	// zero byte appended.
	probe := append(store.Copy(after), 0)
	n, found := o.pending.Ceiling(probe)
	if !found {
		return nil, pending{}, false
	}
	return n.Key.([]byte), n.Value.(pending), true
}

// prevPending returns the largest buffered entry with a key strictly less
// than the given one; a nil bound yields the largest buffered entry.
func (o *Overlay) prevPending(before []byte) ([]byte, pending, bool) {
	if before == nil {
		n := o.pending.Right()
		if n == nil {
			return nil, pending{}, false
		}
		return n.Key.([]byte), n.Value.(pending), true
	}
	n, found := o.pending.Floor(before)
	if !found {
		return nil, pending{}, false
	}
	if bytes.Equal(n.Key.([]byte), before) {
		it := o.pending.IteratorAt(n)
		if !it.Prev() {
			return nil, pending{}, false
		}
		return it.Key().([]byte), it.Value().(pending), true
	}
	return n.Key.([]byte), n.Value.(pending), true
}

// GetNext merge-iterates the buffered writes and the backing store. A
// buffered entry shadows a backing entry with the same key, and buffered
// tombstones suppress backing entries without terminating the scan.
func (o *Overlay) GetNext(key []byte) (*store.Entry, error) {
	cur := key
	for {
		oKey, oVal, oOK := o.nextPending(cur)
		bEntry, err := o.backing.GetNext(cur)
		if err != nil {
			return nil, err
		}
		switch {
		case !oOK && bEntry == nil:
			return nil, nil
		case !oOK:
			return bEntry, nil
		case bEntry == nil || bytes.Compare(oKey, bEntry.Key) <= 0:
			if oVal.tombstone {
				cur = oKey
				continue
			}
			return &store.Entry{Key: store.Copy(oKey), Value: store.Copy(oVal.value)}, nil
		default:
			return bEntry, nil
		}
	}
}

// GetPrev is the mirror image of GetNext, scanning towards smaller keys.
func (o *Overlay) GetPrev(key []byte) (*store.Entry, error) {
	cur := key
	for {
		oKey, oVal, oOK := o.prevPending(cur)
		bEntry, err := o.backing.GetPrev(cur)
		if err != nil {
			return nil, err
		}
		switch {
		case !oOK && bEntry == nil:
			return nil, nil
		case !oOK:
			return bEntry, nil
		case bEntry == nil || bytes.Compare(oKey, bEntry.Key) >= 0:
			if oVal.tombstone {
				cur = oKey
				continue
			}
			return &store.Entry{Key: store.Copy(oKey), Value: store.Copy(oVal.value)}, nil
		default:
			return bEntry, nil
		}
	}
}

// Flush applies all buffered writes to the backing store in ascending key
// order and empties the overlay. The overlay remains usable afterwards.
func (o *Overlay) Flush() error {
	it := o.pending.Iterator()
	for it.Next() {
		key := it.Key().([]byte)
		p := it.Value().(pending)
		if p.tombstone {
			if err := o.backing.Delete(key); err != nil {
				return err
			}
		} else if err := o.backing.Put(key, p.value); err != nil {
			return err
		}
	}
	o.pending.Clear()
	return nil
}

// Discard drops all buffered writes without touching the backing store.
func (o *Overlay) Discard() {
	o.pending.Clear()
}

// Pending returns the number of buffered writes, tombstones included.
func (o *Overlay) Pending() int {
	return o.pending.Size()
}
