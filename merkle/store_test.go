// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package merkle_test

import (
	"bytes"
	"testing"

	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/merkle"
)

func TestStore_ImplementsTheStoreOperations(t *testing.T) {
	s := openProofStore(t)
	for _, k := range []byte{1, 3, 5} {
		if err := s.Put([]byte{k}, []byte{k * 10}); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	value, exists, err := s.Get([]byte{3})
	if err != nil || !exists || !bytes.Equal(value, []byte{30}) {
		t.Errorf("got %x, %v, %v", value, exists, err)
	}
	entry, err := s.GetNext([]byte{3})
	if err != nil || entry == nil || !bytes.Equal(entry.Key, []byte{5}) {
		t.Errorf("next of 3 must be 5, got %v, %v", entry, err)
	}
	entry, err = s.GetPrev(nil)
	if err != nil || entry == nil || !bytes.Equal(entry.Key, []byte{5}) {
		t.Errorf("last entry must be 5, got %v, %v", entry, err)
	}
	if err := s.Delete([]byte{3}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entry, err = s.GetNext([]byte{1})
	if err != nil || entry == nil || !bytes.Equal(entry.Key, []byte{5}) {
		t.Errorf("next of 1 must skip the deleted 3, got %v, %v", entry, err)
	}
}

func TestStore_EnforcesConfiguredSizeLimits(t *testing.T) {
	config := merkle.DefaultConfig()
	config.MaxKeySize = 4
	config.MaxValueSize = 8
	s, err := merkle.NewStore(t.TempDir(), config)
	if err != nil {
		t.Fatalf("cannot open store: %v", err)
	}
	defer s.Close()

	if err := s.Put([]byte("1234"), []byte("12345678")); err != nil {
		t.Errorf("write at the limits must succeed, got %v", err)
	}
	if err := s.Put([]byte("12345"), []byte("v")); err == nil {
		t.Errorf("oversized key must be rejected")
	}
	if err := s.Put([]byte("k"), []byte("123456789")); err == nil {
		t.Errorf("oversized value must be rejected")
	}
}

func TestStore_QueryServesTheRootAndTheProof(t *testing.T) {
	s := openProofStore(t)
	if err := s.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	resp, err := s.Query([]byte("key"))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(resp) <= common.HashSize {
		t.Fatalf("response of %d bytes cannot carry a root and a proof", len(resp))
	}
	if common.HashFromBytes(resp[:common.HashSize]) != s.RootHash() {
		t.Errorf("response must lead with the current root hash")
	}
}

func TestStore_PersistsAcrossReopening(t *testing.T) {
	dir := t.TempDir()
	s, err := merkle.NewStore(dir, merkle.DefaultConfig())
	if err != nil {
		t.Fatalf("cannot open store: %v", err)
	}
	if err := s.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	root, err := s.Commit(1)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s, err = merkle.NewStore(dir, merkle.DefaultConfig())
	if err != nil {
		t.Fatalf("cannot reopen store: %v", err)
	}
	defer s.Close()
	if got := s.RootHash(); got != root {
		t.Errorf("reopened store has root %s, committed %s", got, root)
	}
	value, exists, err := s.Get([]byte("key"))
	if err != nil || !exists || !bytes.Equal(value, []byte("value")) {
		t.Errorf("got %q, %v, %v", value, exists, err)
	}
}
