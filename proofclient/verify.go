// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proofclient

import (
	"bytes"
	"fmt"

	ics23 "github.com/cosmos/ics23/go"
	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/merkle"
)

func verifyErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{common.ErrProofVerification}, args...)...)
}

// VerifyProof checks the serialized proof against the given root hash and
// extracts the result for the key: the proven value, or a verified
// absence. Any inconsistency is an error.
func VerifyProof(root common.Hash, key, proofBytes []byte) ([]byte, bool, error) {
	var proof ics23.CommitmentProof
	if err := proof.Unmarshal(proofBytes); err != nil {
		return nil, false, verifyErr("malformed proof: %v", err)
	}
	if exist := proof.GetExist(); exist != nil {
		if !bytes.Equal(exist.Key, key) {
			return nil, false, verifyErr("proof is for key %x, not %x", exist.Key, key)
		}
		if !ics23.VerifyMembership(merkle.ProofSpec(), root.ToBytes(), &proof, key, exist.Value) {
			return nil, false, verifyErr("existence proof does not match the root hash")
		}
		return exist.Value, true, nil
	}
	nonexist := proof.GetNonexist()
	if nonexist == nil {
		return nil, false, verifyErr("proof claims neither existence nor non-existence")
	}
	if !bytes.Equal(nonexist.Key, key) {
		return nil, false, verifyErr("proof is for key %x, not %x", nonexist.Key, key)
	}
	if err := verifyAbsence(root, key, nonexist); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// verifyAbsence checks a non-existence proof: both neighbor proofs must
// verify against the root, enclose the key, lie on one search path, and
// that path must visibly dead-end where the key would have been found.
func verifyAbsence(root common.Hash, key []byte, nonexist *ics23.NonExistenceProof) error {
	left, right := nonexist.Left, nonexist.Right
	if left == nil && right == nil {
		if root.IsZero() {
			return nil
		}
		return verifyErr("non-existence proof without neighbors for a non-empty tree")
	}
	spec := merkle.ProofSpec()
	if left != nil {
		if bytes.Compare(left.Key, key) >= 0 {
			return verifyErr("left neighbor %x is not below the key", left.Key)
		}
		if err := left.Verify(spec, root.ToBytes(), left.Key, left.Value); err != nil {
			return verifyErr("left neighbor does not match the root hash: %v", err)
		}
	}
	if right != nil {
		if bytes.Compare(key, right.Key) >= 0 {
			return verifyErr("right neighbor %x is not above the key", right.Key)
		}
		if err := right.Verify(spec, root.ToBytes(), right.Key, right.Value); err != nil {
			return verifyErr("right neighbor does not match the root hash: %v", err)
		}
	}

	// The deeper of the two neighbors is the node where the search for
	// the key ran out of tree; the other one, if any, is an ancestor on
	// the same descent.
	switch {
	case right == nil:
		if err := checkDeadEnd(left, false); err != nil {
			return err
		}
		// Without a right neighbor the key exceeds all entries, so the
		// left neighbor must be the largest one: every ancestor step
		// descends into a right child.
		for _, op := range left.Path[1:] {
			if len(op.Suffix) != 0 {
				return verifyErr("left neighbor is not the largest entry")
			}
		}
	case left == nil:
		if err := checkDeadEnd(right, true); err != nil {
			return err
		}
		// Mirror case: the right neighbor must be the smallest entry.
		for _, op := range right.Path[1:] {
			if len(op.Prefix) != 1+common.HashSize || len(op.Suffix) != common.HashSize {
				return verifyErr("right neighbor is not the smallest entry")
			}
		}
	case len(left.Path) == len(right.Path):
		return verifyErr("neighbors cannot sit at the same depth of one search path")
	case len(left.Path) > len(right.Path):
		if err := checkDeadEnd(left, false); err != nil {
			return err
		}
		return checkSearchPath(left, right, true)
	default:
		if err := checkDeadEnd(right, true); err != nil {
			return err
		}
		return checkSearchPath(right, left, false)
	}
	return nil
}

// checkDeadEnd verifies that the neighbor's own hash step shows an empty
// child slot on the side the key would continue on: the left child for a
// right neighbor, the right child for a left one.
func checkDeadEnd(neighbor *ics23.ExistenceProof, leftChildEmpty bool) error {
	if len(neighbor.Path) == 0 {
		return verifyErr("neighbor proof has an empty path")
	}
	self := neighbor.Path[0]
	if len(self.Prefix) != 1 || len(self.Suffix) != 2*common.HashSize {
		return verifyErr("neighbor proof lacks the node's own hash step")
	}
	child := self.Suffix[common.HashSize:]
	if leftChildEmpty {
		child = self.Suffix[:common.HashSize]
	}
	if !bytes.Equal(child, make([]byte, common.HashSize)) {
		return verifyErr("search path does not dead-end at the neighbor")
	}
	return nil
}

// isLeftDescent reports whether the hash step records a descent into the
// node's left child: the pair digest forms the prefix and the right
// sibling hash the suffix.
func isLeftDescent(op *ics23.InnerOp) bool {
	return len(op.Prefix) == 1+common.HashSize && len(op.Suffix) == common.HashSize
}

// isRightDescent reports whether the hash step records a descent into the
// node's right child: pair digest and left sibling hash form the prefix,
// nothing follows.
func isRightDescent(op *ics23.InnerOp) bool {
	return len(op.Prefix) == 1+2*common.HashSize && len(op.Suffix) == 0
}

// checkSearchPath verifies that the shallower neighbor is an ancestor on
// the deeper neighbor's path, and that the descent between the two is the
// one a search for the missing key would take: every step below the
// ancestor keeps heading towards the gap, and the ancestor itself turns
// the opposite way. Without the direction checks, two honest existence
// proofs could be combined into an absence claim for a key the tree does
// contain.
func checkSearchPath(deeper, shallower *ics23.ExistenceProof, deeperIsLeft bool) error {
	digest := merkle.LeafDigest(shallower.Key, shallower.Value)
	link := 0
	for i, op := range deeper.Path[1:] {
		if len(op.Prefix) >= 1+common.HashSize && bytes.Equal(op.Prefix[1:1+common.HashSize], digest) {
			link = i + 1
			break
		}
	}
	if link == 0 {
		return verifyErr("neighbors do not lie on one search path")
	}
	// For a left neighbor the gap lies to its right: below the ancestor
	// every step must descend right, pinning the neighbor as the largest
	// entry of the subtree the search dead-ended in. Mirrored for a right
	// neighbor.
	for _, op := range deeper.Path[1:link] {
		if deeperIsLeft && !isRightDescent(op) || !deeperIsLeft && !isLeftDescent(op) {
			return verifyErr("search path bends away from the missing key")
		}
	}
	anchor := deeper.Path[link]
	if deeperIsLeft && !isLeftDescent(anchor) || !deeperIsLeft && !isRightDescent(anchor) {
		return verifyErr("linking ancestor does not enclose the missing key")
	}
	return nil
}
