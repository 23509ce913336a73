// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"fmt"

	"github.com/strata-db/strata/common"
)

// Target is the store side a snapshot is restored into. It is expected to
// be empty.
type Target interface {
	Put(key, value []byte) error
	Commit(height uint64) (common.Hash, error)
}

// Restore sequentially loads all chunks of a snapshot into the target and
// commits it at the snapshot height. Every chunk is checked against its
// manifest digest before being applied, and the committed root hash must
// equal the manifest root; any mismatch fails with
// common.ErrProofVerification, as restored state is only trustworthy
// through these checks.
func Restore(target Target, height uint64, root common.Hash, digests []common.Hash, fetch func(index int) ([]byte, error)) error {
	for i, digest := range digests {
		data, err := fetch(i)
		if err != nil {
			return err
		}
		if common.Keccak256(data) != digest {
			return fmt.Errorf("%w: snapshot chunk %d digest mismatch", common.ErrProofVerification, i)
		}
		pairs, err := decodeChunk(data)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			if err := target.Put(pair.Key, pair.Value); err != nil {
				return err
			}
		}
	}
	got, err := target.Commit(height)
	if err != nil {
		return err
	}
	if got != root {
		return fmt.Errorf("%w: restored root hash %s does not match snapshot root %s", common.ErrProofVerification, got, root)
	}
	return nil
}
