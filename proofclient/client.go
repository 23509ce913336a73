// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package proofclient is the read-side verifier for remote queries. A
// client holds a trusted root hash, obtained out of band from consensus,
// and accepts a value (or an absence) only when the served proof verifies
// against that root. Proofs are a security boundary: any verification
// failure is fatal for the response, never downgraded to a miss.
package proofclient

import (
	"fmt"

	"github.com/strata-db/strata/common"
)

// Transport answers a query for one key with the serving store's response
// in the wire format root_hash(32 bytes) || proof_bytes. Transport errors
// are I/O failures; the caller may retry another endpoint.
type Transport interface {
	Query(key []byte) ([]byte, error)
}

// Client verifies remotely served reads against a trusted root hash.
type Client struct {
	transport Transport
	root      common.Hash
}

// New creates a client reading through the given transport and trusting
// the given root hash.
func New(transport Transport, root common.Hash) *Client {
	return &Client{transport: transport, root: root}
}

// UpdateRoot replaces the trusted root hash, typically after a new block
// header has been verified.
func (c *Client) UpdateRoot(root common.Hash) {
	c.root = root
}

// Get fetches and verifies the value for the given key. It returns the
// proven value, or a verified absence, or an error. Transport errors pass
// through unchanged; everything wrong with the response itself is
// common.ErrProofVerification.
func (c *Client) Get(key []byte) ([]byte, bool, error) {
	resp, err := c.transport.Query(key)
	if err != nil {
		return nil, false, err
	}
	if len(resp) < common.HashSize {
		return nil, false, fmt.Errorf("%w: response shorter than a root hash", common.ErrProofVerification)
	}
	root := common.HashFromBytes(resp[:common.HashSize])
	if root != c.root {
		return nil, false, fmt.Errorf("%w: response root %s does not match trusted root %s", common.ErrProofVerification, root, c.root)
	}
	value, exists, err := VerifyProof(root, key, resp[common.HashSize:])
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	return value, true, nil
}
