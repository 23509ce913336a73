// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/strata-db/strata/common"
)

const (
	// leafTag prefixes the digest of a node's own key/value pair.
	leafTag = 0x00
	// innerTag prefixes the digest combining a node's pair digest with
	// both child subtree hashes.
	innerTag = 0x01
)

// zeroHash stands in for the hash of an absent child subtree.
var zeroHash [common.HashSize]byte

// node is one node of the authenticated treap. Every node, inner or
// leaf, carries a key/value pair; the node hash commits to the pair and to
// both child subtree hashes. Since heap priorities derive from key
// digests, the tree shape, and with it the root hash, is a pure function
// of the stored key/value set.
//
// A child exists iff its pointer or its persisted hash is set. The node
// hash is nil while the subtree is dirty; child hash fields are refreshed
// when the hash is recomputed.
type node struct {
	key       []byte
	value     []byte
	priority  uint64
	left      *node
	right     *node
	leftHash  []byte
	rightHash []byte
	hash      []byte
	persisted bool
}

func (n *node) markDirty() {
	n.hash = nil
	n.persisted = false
}

// nodePriority derives the heap priority of a key from its digest. It is
// never persisted; loading a node recomputes it.
func nodePriority(key []byte) uint64 {
	sum := sha256.Sum256(key)
	return binary.BigEndian.Uint64(sum[:8])
}

// LeafDigest computes the digest committing to one key/value pair. It
// follows the interchange leaf convention: a tag byte, the varint length
// prefixed key, and the varint length prefixed hash of the value.
func LeafDigest(key, value []byte) []byte {
	valueHash := sha256.Sum256(value)
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(key)+common.HashSize+1)
	buf = append(buf, leafTag)
	buf = binary.AppendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)
	buf = binary.AppendUvarint(buf, uint64(len(valueHash)))
	buf = append(buf, valueHash[:]...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

func innerDigest(kvDigest, leftHash, rightHash []byte) []byte {
	buf := make([]byte, 0, 3*common.HashSize+1)
	buf = append(buf, innerTag)
	buf = append(buf, kvDigest...)
	buf = append(buf, leftHash...)
	buf = append(buf, rightHash...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// nodeRLP is the persisted form of a node. Child references are subtree
// hashes; an empty hash encodes an absent child.
type nodeRLP struct {
	Key   []byte
	Value []byte
	Left  []byte
	Right []byte
}

// encode serializes the node. The node hash and child hash fields must be
// up to date, which computeHash guarantees.
func (n *node) encode() ([]byte, error) {
	return rlp.EncodeToBytes(&nodeRLP{
		Key:   n.key,
		Value: n.value,
		Left:  n.leftHash,
		Right: n.rightHash,
	})
}

// decodeNode deserializes a node that was persisted under the given hash.
func decodeNode(hash, data []byte) (*node, error) {
	var enc nodeRLP
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return nil, fmt.Errorf("%w: undecodable tree node %x: %v", common.ErrCorrupted, hash, err)
	}
	n := &node{
		key:       enc.Key,
		value:     enc.Value,
		priority:  nodePriority(enc.Key),
		hash:      append([]byte(nil), hash...),
		persisted: true,
	}
	if len(enc.Left) > 0 {
		n.leftHash = enc.Left
	}
	if len(enc.Right) > 0 {
		n.rightHash = enc.Right
	}
	return n, nil
}

// computeHash returns the node's hash, recomputing it and refreshing the
// child hash fields along all dirty paths.
func (n *node) computeHash() []byte {
	if n.hash != nil {
		return n.hash
	}
	lh := zeroHash[:]
	if n.left != nil {
		lh = n.left.computeHash()
		n.leftHash = lh
	} else if n.leftHash != nil {
		lh = n.leftHash
	}
	rh := zeroHash[:]
	if n.right != nil {
		rh = n.right.computeHash()
		n.rightHash = rh
	} else if n.rightHash != nil {
		rh = n.rightHash
	}
	n.hash = innerDigest(LeafDigest(n.key, n.value), lh, rh)
	return n.hash
}

// childHash returns the hash of the requested child subtree, or the zero
// hash if the child is absent. It must only be called after computeHash.
func (n *node) childHash(left bool) []byte {
	if left {
		if n.leftHash != nil {
			return n.leftHash
		}
	} else if n.rightHash != nil {
		return n.rightHash
	}
	return zeroHash[:]
}
