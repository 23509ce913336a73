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
	"bytes"

	ics23 "github.com/cosmos/ics23/go"
	"github.com/strata-db/strata/store"
)

// ProofSpec describes the hashing layout of this tree in the interchange
// proof format, allowing non-native clients to verify proofs
// independently. The leaf operation reproduces LeafDigest; inner
// operations carry the inner tag, the pair digest, and the sibling hash
// split into the prefix and suffix halves of the parent's hash input.
func ProofSpec() *ics23.ProofSpec {
	return &ics23.ProofSpec{
		LeafSpec: &ics23.LeafOp{
			Hash:         ics23.HashOp_SHA256,
			PrehashValue: ics23.HashOp_SHA256,
			Length:       ics23.LengthOp_VAR_PROTO,
			Prefix:       []byte{leafTag},
		},
		InnerSpec: &ics23.InnerSpec{
			ChildOrder:      []int32{0, 1},
			ChildSize:       32,
			MinPrefixLength: 1,
			MaxPrefixLength: 33,
			Hash:            ics23.HashOp_SHA256,
		},
	}
}

func leafOp() *ics23.LeafOp {
	return ProofSpec().LeafSpec
}

// selfOp is the hash step of a node itself: its pair digest is the child
// being substituted, the inner tag is the prefix, and both subtree hashes
// form the suffix.
func selfOp(n *node) *ics23.InnerOp {
	suffix := make([]byte, 0, 64)
	suffix = append(suffix, n.childHash(true)...)
	suffix = append(suffix, n.childHash(false)...)
	return &ics23.InnerOp{
		Hash:   ics23.HashOp_SHA256,
		Prefix: []byte{innerTag},
		Suffix: suffix,
	}
}

// descendOp is the hash step of an ancestor as seen from the child on the
// descent. Which halves of the hash input are prefix and suffix depends on
// the branch taken: the pair digest always precedes the child, and the
// sibling hash lands on the far side.
func descendOp(n *node, goingLeft bool) *ics23.InnerOp {
	kv := LeafDigest(n.key, n.value)
	if goingLeft {
		prefix := make([]byte, 0, 33)
		prefix = append(prefix, innerTag)
		prefix = append(prefix, kv...)
		return &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: prefix,
			Suffix: append([]byte(nil), n.childHash(false)...),
		}
	}
	prefix := make([]byte, 0, 65)
	prefix = append(prefix, innerTag)
	prefix = append(prefix, kv...)
	prefix = append(prefix, n.childHash(true)...)
	return &ics23.InnerOp{
		Hash:   ics23.HashOp_SHA256,
		Prefix: prefix,
	}
}

// existenceProof assembles the proof for a node given the inner ops of its
// ancestors in descent order. The path runs from the node up to the root.
func existenceProof(n *node, ancestors []*ics23.InnerOp) *ics23.ExistenceProof {
	path := make([]*ics23.InnerOp, 0, len(ancestors)+1)
	path = append(path, selfOp(n))
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i])
	}
	return &ics23.ExistenceProof{
		Key:   store.Copy(n.key),
		Value: store.Copy(n.value),
		Leaf:  leafOp(),
		Path:  path,
	}
}

// Prove constructs a proof of existence or non-existence for the given
// key against the current root hash.
//
// The descent walks from the root towards the key, accumulating the hash
// step of every visited node. A node with a smaller key is remembered as
// the nearest left neighbor candidate, one with a greater key as the
// nearest right neighbor candidate. Reaching the key yields an existence
// proof; running out of tree yields a non-existence proof built from the
// most recently captured candidates.
func (t *Tree) Prove(key []byte) (*ics23.CommitmentProof, error) {
	// Refresh all dirty hashes so child hash fields are valid.
	t.RootHash()

	type candidate struct {
		n     *node
		depth int
	}
	var left, right *candidate
	var path []*ics23.InnerOp

	n := t.root
	for n != nil {
		switch cmp := bytes.Compare(key, n.key); {
		case cmp == 0:
			return &ics23.CommitmentProof{
				Proof: &ics23.CommitmentProof_Exist{Exist: existenceProof(n, path)},
			}, nil
		case cmp < 0:
			right = &candidate{n: n, depth: len(path)}
			path = append(path, descendOp(n, true))
			c, err := t.loadChild(n, true)
			if err != nil {
				return nil, err
			}
			n = c
		default:
			left = &candidate{n: n, depth: len(path)}
			path = append(path, descendOp(n, false))
			c, err := t.loadChild(n, false)
			if err != nil {
				return nil, err
			}
			n = c
		}
	}

	nonexist := &ics23.NonExistenceProof{Key: store.Copy(key)}
	if left != nil {
		nonexist.Left = existenceProof(left.n, path[:left.depth])
	}
	if right != nil {
		nonexist.Right = existenceProof(right.n, path[:right.depth])
	}
	return &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Nonexist{Nonexist: nonexist},
	}, nil
}
