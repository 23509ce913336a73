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

import "github.com/strata-db/strata/common"

// UnknownStore is the always-failing base store. Every operation reports
// common.ErrUnknownRegion. It is used as a placeholder where a backing
// store is required by construction but must never actually be reached,
// turning a missing configuration into a loud error instead of silently
// empty data.
type UnknownStore struct{}

func (UnknownStore) Get(key []byte) ([]byte, bool, error) {
	return nil, false, common.ErrUnknownRegion
}

func (UnknownStore) GetNext(key []byte) (*Entry, error) {
	return nil, common.ErrUnknownRegion
}

func (UnknownStore) GetPrev(key []byte) (*Entry, error) {
	return nil, common.ErrUnknownRegion
}

func (UnknownStore) Put(key, value []byte) error {
	return common.ErrUnknownRegion
}

func (UnknownStore) Delete(key []byte) error {
	return common.ErrUnknownRegion
}
