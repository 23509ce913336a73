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
	"log"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultChunkSize bounds the serialized size of one snapshot chunk. It
// must be uniform across peers exchanging chunks.
const DefaultChunkSize = 1 << 22

// Manager owns the snapshot registry of one store: it decides at every
// commit whether a checkpoint is due, creates it, and prunes checkpoints
// no policy wants anymore. On construction it rebuilds the registry purely
// from the height-named directories found on disk.
type Manager struct {
	dir       string
	filters   []Filter
	chunkSize int
	snapshots map[uint64]*Snapshot
}

// NewManager creates a manager rooted at the given directory, recovering
// any checkpoints already present. Directories that do not parse as a
// height or lack a readable manifest are skipped; the next pruning pass
// cannot remove what was never registered, so they are left in place for
// manual inspection.
func NewManager(dir string, filters []Filter, chunkSize int) (*Manager, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	m := &Manager{
		dir:       dir,
		filters:   filters,
		chunkSize: chunkSize,
		snapshots: make(map[uint64]*Snapshot),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		height, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		snap, err := openSnapshot(filepath.Join(dir, entry.Name()), height)
		if err != nil {
			log.Printf("skipping unreadable snapshot directory %s: %v", entry.Name(), err)
			continue
		}
		m.snapshots[height] = snap
	}
	return m, nil
}

// ShouldCreate reports whether any policy wants a snapshot at this height.
func (m *Manager) ShouldCreate(height uint64) bool {
	for _, f := range m.filters {
		if f.ShouldCreate(height) {
			return true
		}
	}
	return false
}

// ShouldKeep reports whether any policy still wants a snapshot taken at
// ssHeight now that the store is at curHeight.
func (m *Manager) ShouldKeep(ssHeight, curHeight uint64) bool {
	for _, f := range m.filters {
		if f.ShouldKeep(ssHeight, curHeight) {
			return true
		}
	}
	return false
}

// MaybeCreateSnapshot checkpoints the source at the given height if the
// policies require it and no checkpoint exists there yet, then prunes
// every registered snapshot no policy wants to keep at this height.
func (m *Manager) MaybeCreateSnapshot(height uint64, src Source) error {
	if m.ShouldCreate(height) {
		if _, exists := m.snapshots[height]; !exists {
			snap, err := createSnapshot(m.dir, height, m.chunkSize, src)
			if err != nil {
				return err
			}
			m.snapshots[height] = snap
		}
	}
	for h, snap := range m.snapshots {
		if m.ShouldKeep(h, height) {
			continue
		}
		delete(m.snapshots, h)
		if err := os.RemoveAll(snap.dir); err != nil {
			return err
		}
	}
	return nil
}

// LoadChunk serves one chunk of the snapshot at the given height. An
// unknown height or chunk index yields an empty chunk rather than an
// error; a peer lacking a chunk is an expected condition of the state
// sync protocol, and the requester penalizes and retries elsewhere.
func (m *Manager) LoadChunk(height uint64, index int) ([]byte, error) {
	snap, ok := m.snapshots[height]
	if !ok {
		return nil, nil
	}
	if index < 0 || index >= snap.NumChunks() {
		return nil, nil
	}
	return snap.LoadChunk(index)
}

// Get returns the registered snapshot at the given height.
func (m *Manager) Get(height uint64) (*Snapshot, bool) {
	snap, ok := m.snapshots[height]
	return snap, ok
}

// Heights lists the heights of all registered snapshots in ascending
// order.
func (m *Manager) Heights() []uint64 {
	heights := maps.Keys(m.snapshots)
	slices.Sort(heights)
	return heights
}
