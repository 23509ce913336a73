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

import (
	"bytes"

	"github.com/strata-db/strata/common"
)

// PartialStore exposes only a contiguous key region [start, limit) of its
// backing store. Operations that would have to consult data outside the
// region fail with common.ErrUnknownRegion; the store refuses to guess
// rather than mistake unknown data for absence.
//
// A nil limit leaves the region unbounded above; an empty start leaves it
// unbounded below.
type PartialStore struct {
	inner KeyValueStore
	start []byte
	limit []byte
}

// NewPartialStore wraps the given store, restricting answers to the key
// region [start, limit).
func NewPartialStore(inner KeyValueStore, start, limit []byte) *PartialStore {
	p := &PartialStore{inner: inner, start: Copy(start)}
	if limit != nil {
		p.limit = Copy(limit)
	}
	return p
}

func (p *PartialStore) contains(key []byte) bool {
	if bytes.Compare(key, p.start) < 0 {
		return false
	}
	return p.limit == nil || bytes.Compare(key, p.limit) < 0
}

func (p *PartialStore) Get(key []byte) ([]byte, bool, error) {
	if !p.contains(key) {
		return nil, false, common.ErrUnknownRegion
	}
	return p.inner.Get(key)
}

func (p *PartialStore) GetNext(key []byte) (*Entry, error) {
	// Entries in (key, start) would be outside the known region, so the
	// probe itself must not start below it.
	if bytes.Compare(key, p.start) < 0 && len(p.start) > 0 {
		return nil, common.ErrUnknownRegion
	}
	if p.limit != nil && bytes.Compare(key, p.limit) >= 0 {
		return nil, common.ErrUnknownRegion
	}
	entry, err := p.inner.GetNext(key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		if p.limit != nil {
			// The region ends before the keyspace does; absence beyond
			// the limit cannot be asserted from here.
			return nil, common.ErrUnknownRegion
		}
		return nil, nil
	}
	if p.limit != nil && bytes.Compare(entry.Key, p.limit) >= 0 {
		return nil, common.ErrUnknownRegion
	}
	return entry, nil
}

func (p *PartialStore) GetPrev(key []byte) (*Entry, error) {
	if key == nil {
		if p.limit != nil {
			return nil, common.ErrUnknownRegion
		}
	} else {
		if p.limit != nil && bytes.Compare(key, p.limit) > 0 {
			return nil, common.ErrUnknownRegion
		}
		if len(p.start) > 0 && bytes.Compare(key, p.start) <= 0 {
			return nil, common.ErrUnknownRegion
		}
	}
	entry, err := p.inner.GetPrev(key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		if len(p.start) > 0 {
			return nil, common.ErrUnknownRegion
		}
		return nil, nil
	}
	if bytes.Compare(entry.Key, p.start) < 0 {
		return nil, common.ErrUnknownRegion
	}
	return entry, nil
}

func (p *PartialStore) Put(key, value []byte) error {
	if !p.contains(key) {
		return common.ErrUnknownRegion
	}
	return p.inner.Put(key, value)
}

func (p *PartialStore) Delete(key []byte) error {
	if !p.contains(key) {
		return common.ErrUnknownRegion
	}
	return p.inner.Delete(key)
}
