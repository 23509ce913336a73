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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/strata-db/strata/common"
)

// fakeSource serves a fixed set of ascending entries under a made-up root
// hash, standing in for a committed store.
type fakeSource struct {
	entries int
	root    common.Hash
}

func (s fakeSource) RootHash() common.Hash {
	return s.root
}

func (s fakeSource) Iterate(visit func(key, value []byte) error) error {
	for i := 0; i < s.entries; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		value := []byte(fmt.Sprintf("value-%06d", i))
		if err := visit(key, value); err != nil {
			return err
		}
	}
	return nil
}

func TestManager_CreatesSnapshotsOnDemand(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, []Filter{IntervalFilter{Interval: 10, Limit: 2}}, 256)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	src := fakeSource{entries: 100, root: common.Keccak256([]byte("root"))}

	if err := m.MaybeCreateSnapshot(5, src); err != nil {
		t.Fatalf("commit hook failed: %v", err)
	}
	if len(m.Heights()) != 0 {
		t.Errorf("no snapshot is due at height 5, got %v", m.Heights())
	}

	if err := m.MaybeCreateSnapshot(10, src); err != nil {
		t.Fatalf("commit hook failed: %v", err)
	}
	snap, ok := m.Get(10)
	if !ok {
		t.Fatalf("snapshot at height 10 is missing")
	}
	if snap.Root != src.root {
		t.Errorf("snapshot root %s does not match the source root", snap.Root)
	}
	if snap.NumChunks() < 2 {
		t.Errorf("100 entries with a 256 byte chunk budget must split into several chunks, got %d", snap.NumChunks())
	}
	for i := 0; i < snap.NumChunks(); i++ {
		if _, err := os.Stat(chunkFile(snap.dir, i)); err != nil {
			t.Errorf("chunk %d is not materialized on disk: %v", i, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "10", manifestFile)); err != nil {
		t.Errorf("manifest is not materialized on disk: %v", err)
	}
}

func TestManager_PrunesSnapshotsNoPolicyWants(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, []Filter{IntervalFilter{Interval: 10, Limit: 2}}, 0)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	src := fakeSource{entries: 10}

	for height := uint64(10); height <= 50; height += 10 {
		if err := m.MaybeCreateSnapshot(height, src); err != nil {
			t.Fatalf("commit hook failed at height %d: %v", height, err)
		}
	}
	heights := m.Heights()
	if len(heights) != 2 || heights[0] != 40 || heights[1] != 50 {
		t.Errorf("retention of 2 must leave heights 40 and 50, got %v", heights)
	}
	if _, err := os.Stat(filepath.Join(dir, "10")); !os.IsNotExist(err) {
		t.Errorf("pruned snapshot directory must be removed from disk, got %v", err)
	}
}

func TestManager_CreationIsIdempotentPerHeight(t *testing.T) {
	m, err := NewManager(t.TempDir(), []Filter{HeightFilter{Height: 10}}, 0)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	src := fakeSource{entries: 10}
	if err := m.MaybeCreateSnapshot(10, src); err != nil {
		t.Fatalf("commit hook failed: %v", err)
	}
	first, _ := m.Get(10)
	if err := m.MaybeCreateSnapshot(10, src); err != nil {
		t.Fatalf("repeated commit hook failed: %v", err)
	}
	second, _ := m.Get(10)
	if first != second {
		t.Errorf("a second commit at the same height must not recreate the snapshot")
	}
}

func TestManager_RecoversTheRegistryFromDisk(t *testing.T) {
	dir := t.TempDir()
	filters := []Filter{IntervalFilter{Interval: 10, Limit: 10}}
	m, err := NewManager(dir, filters, 128)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	src := fakeSource{entries: 30, root: common.Keccak256([]byte("root"))}
	for height := uint64(10); height <= 30; height += 10 {
		if err := m.MaybeCreateSnapshot(height, src); err != nil {
			t.Fatalf("commit hook failed: %v", err)
		}
	}
	want, _ := m.Get(20)

	// A directory that is not a snapshot must not break recovery.
	if err := os.MkdirAll(filepath.Join(dir, "not-a-height"), 0700); err != nil {
		t.Fatalf("cannot create decoy directory: %v", err)
	}

	m, err = NewManager(dir, filters, 128)
	if err != nil {
		t.Fatalf("cannot reopen manager: %v", err)
	}
	heights := m.Heights()
	if len(heights) != 3 || heights[0] != 10 || heights[2] != 30 {
		t.Fatalf("recovered registry has heights %v", heights)
	}
	got, ok := m.Get(20)
	if !ok || got.Root != want.Root || got.NumChunks() != want.NumChunks() {
		t.Errorf("recovered snapshot differs: %+v vs %+v", got, want)
	}
	for i := range got.ChunkDigests {
		if got.ChunkDigests[i] != want.ChunkDigests[i] {
			t.Errorf("chunk digest %d differs after recovery", i)
		}
	}
}

func TestManager_LoadChunkToleratesUnknownRequests(t *testing.T) {
	m, err := NewManager(t.TempDir(), []Filter{HeightFilter{Height: 5}}, 0)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	if err := m.MaybeCreateSnapshot(5, fakeSource{entries: 5}); err != nil {
		t.Fatalf("commit hook failed: %v", err)
	}

	if data, err := m.LoadChunk(99, 0); err != nil || data != nil {
		t.Errorf("unknown height must yield an empty chunk, got %v, %v", data, err)
	}
	if data, err := m.LoadChunk(5, 99); err != nil || data != nil {
		t.Errorf("unknown chunk index must yield an empty chunk, got %v, %v", data, err)
	}
	if data, err := m.LoadChunk(5, -1); err != nil || data != nil {
		t.Errorf("negative chunk index must yield an empty chunk, got %v, %v", data, err)
	}
	if data, err := m.LoadChunk(5, 0); err != nil || data == nil {
		t.Errorf("known chunk must be served, got %v, %v", data, err)
	}
}

func TestSnapshot_LoadChunkDetectsTampering(t *testing.T) {
	m, err := NewManager(t.TempDir(), []Filter{HeightFilter{Height: 5}}, 0)
	if err != nil {
		t.Fatalf("cannot create manager: %v", err)
	}
	if err := m.MaybeCreateSnapshot(5, fakeSource{entries: 5}); err != nil {
		t.Fatalf("commit hook failed: %v", err)
	}
	snap, _ := m.Get(5)

	path := chunkFile(snap.dir, 0)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read chunk: %v", err)
	}
	data[0] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("cannot rewrite chunk: %v", err)
	}

	if _, err := snap.LoadChunk(0); !errors.Is(err, common.ErrCorrupted) {
		t.Errorf("tampered chunk must fail the digest check, got %v", err)
	}
}
