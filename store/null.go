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

// NullStore is the always-empty base store. Reads find nothing and writes
// are discarded. It is the usual backing of a purely in-memory overlay.
type NullStore struct{}

func (NullStore) Get(key []byte) ([]byte, bool, error) {
	return nil, false, nil
}

func (NullStore) GetNext(key []byte) (*Entry, error) {
	return nil, nil
}

func (NullStore) GetPrev(key []byte) (*Entry, error) {
	return nil, nil
}

func (NullStore) Put(key, value []byte) error {
	return nil
}

func (NullStore) Delete(key []byte) error {
	return nil
}
