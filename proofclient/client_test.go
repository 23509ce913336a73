// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proofclient_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/merkle"
	"github.com/strata-db/strata/proofclient"
)

func openServingStore(t *testing.T) *merkle.Store {
	t.Helper()
	s, err := merkle.NewStore(t.TempDir(), merkle.DefaultConfig())
	if err != nil {
		t.Fatalf("cannot open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClient_ServesVerifiedReadsAndAbsences(t *testing.T) {
	server := openServingStore(t)
	for i := 0; i < 20; i++ {
		if err := server.Put([]byte(fmt.Sprintf("key-%02d", i*2)), []byte{byte(i)}); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	client := proofclient.New(server, server.RootHash())

	value, exists, err := client.Get([]byte("key-10"))
	if err != nil || !exists || !bytes.Equal(value, []byte{5}) {
		t.Errorf("got %x, %v, %v", value, exists, err)
	}
	value, exists, err = client.Get([]byte("key-11"))
	if err != nil || exists || value != nil {
		t.Errorf("absent key must yield a verified miss, got %x, %v, %v", value, exists, err)
	}
}

func TestClient_RejectsResponsesForAStaleRoot(t *testing.T) {
	server := openServingStore(t)
	if err := server.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	client := proofclient.New(server, server.RootHash())

	// The server moves on; the client's trusted root is now stale.
	if err := server.Put([]byte("other"), []byte("entry")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, _, err := client.Get([]byte("key")); !errors.Is(err, common.ErrProofVerification) {
		t.Errorf("response for a different root must be rejected, got %v", err)
	}

	client.UpdateRoot(server.RootHash())
	value, exists, err := client.Get([]byte("key"))
	if err != nil || !exists || !bytes.Equal(value, []byte("value")) {
		t.Errorf("after a root update the read must verify again, got %x, %v, %v", value, exists, err)
	}
}

type transportFunc func(key []byte) ([]byte, error)

func (f transportFunc) Query(key []byte) ([]byte, error) {
	return f(key)
}

func TestClient_PassesTransportErrorsThrough(t *testing.T) {
	wantErr := errors.New("connection reset")
	client := proofclient.New(transportFunc(func([]byte) ([]byte, error) {
		return nil, wantErr
	}), common.Hash{})
	if _, _, err := client.Get([]byte("key")); !errors.Is(err, wantErr) {
		t.Errorf("transport errors must pass through unchanged, got %v", err)
	}
}

func TestClient_RejectsTruncatedResponses(t *testing.T) {
	client := proofclient.New(transportFunc(func([]byte) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	}), common.Hash{})
	if _, _, err := client.Get([]byte("key")); !errors.Is(err, common.ErrProofVerification) {
		t.Errorf("a response shorter than a root hash must be rejected, got %v", err)
	}
}

func TestClient_RejectsAServerSwappingValues(t *testing.T) {
	server := openServingStore(t)
	if err := server.Put([]byte("a"), []byte("va")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := server.Put([]byte("b"), []byte("vb")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	root := server.RootHash()

	// A dishonest server answers the query for one key with the honest
	// proof of another one.
	dishonest := transportFunc(func([]byte) ([]byte, error) {
		return server.Query([]byte("b"))
	})
	client := proofclient.New(dishonest, root)
	if _, _, err := client.Get([]byte("a")); !errors.Is(err, common.ErrProofVerification) {
		t.Errorf("a proof for another key must be rejected, got %v", err)
	}
}

func TestClient_RejectsAFabricatedAbsence(t *testing.T) {
	server := openServingStore(t)
	if err := server.Put([]byte("a"), []byte("va")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	root := server.RootHash()

	// A dishonest server claims a present key is absent by serving the
	// empty-tree absence proof under the honest root.
	empty := openServingStore(t)
	dishonest := transportFunc(func(key []byte) ([]byte, error) {
		resp, err := empty.Query(key)
		if err != nil {
			return nil, err
		}
		return append(root.ToBytes(), resp[common.HashSize:]...), nil
	})
	client := proofclient.New(dishonest, root)
	if _, _, err := client.Get([]byte("a")); !errors.Is(err, common.ErrProofVerification) {
		t.Errorf("a fabricated absence must be rejected, got %v", err)
	}
}
