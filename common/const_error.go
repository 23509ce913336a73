// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

// ConstError is a error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrUnknownRegion is returned by deliberately partial stores for keys
	// outside the region they can answer for. It is distinct from absence;
	// an absent key is not an error at all.
	ErrUnknownRegion = ConstError("key is outside the known region of this store")

	// ErrNamespaceExhausted is returned by a splitter once all 256 one-byte
	// prefixes have been allocated. It indicates a configuration problem.
	ErrNamespaceExhausted = ConstError("no namespace prefixes left to allocate")

	// ErrProofVerification is returned whenever a cryptographic proof fails
	// to verify against a trusted root hash. It is always fatal for the
	// response carrying the proof.
	ErrProofVerification = ConstError("proof verification failed")

	// ErrCorrupted is returned when on-disk state is found to be
	// inconsistent, for instance a tree node referenced by hash that cannot
	// be resolved. No retry will recover from it.
	ErrCorrupted = ConstError("store state is corrupted")
)
