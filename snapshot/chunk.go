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

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/strata-db/strata/common"
)

// chunkPair is one key/value pair of a serialized snapshot chunk.
type chunkPair struct {
	Key   []byte
	Value []byte
}

// chunkRLP is the serialized form of one chunk: an ascending run of
// key/value pairs.
type chunkRLP struct {
	Pairs []chunkPair
}

func encodeChunk(pairs []chunkPair) ([]byte, error) {
	return rlp.EncodeToBytes(&chunkRLP{Pairs: pairs})
}

func decodeChunk(data []byte) ([]chunkPair, error) {
	var chunk chunkRLP
	if err := rlp.DecodeBytes(data, &chunk); err != nil {
		return nil, fmt.Errorf("%w: undecodable snapshot chunk: %v", common.ErrCorrupted, err)
	}
	return chunk.Pairs, nil
}

// manifestRLP is the serialized snapshot metadata: the checkpointed
// height, the root hash the chunks must reconstruct, and the keccak-256
// digest of every chunk.
type manifestRLP struct {
	Height uint64
	Root   []byte
	Chunks [][]byte
}
