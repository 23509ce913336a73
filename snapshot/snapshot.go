// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package snapshot manages point-in-time checkpoints of a committed store
// for incremental state transfer. A snapshot decomposes the store content
// at one height into an ordered, finite sequence of chunks; loading all
// chunks into an empty store reconstructs a store with the identical root
// hash. Checkpoints live on disk as sibling directories named by decimal
// height, so the registry can be rebuilt from a plain directory scan after
// a restart.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/strata-db/strata/common"
)

const manifestFile = "MANIFEST"

// Source is the store side a checkpoint is taken from.
type Source interface {
	// RootHash returns the commitment to the current content.
	RootHash() common.Hash
	// Iterate visits all entries in ascending key order.
	Iterate(visit func(key, value []byte) error) error
}

// Snapshot is one immutable, height-addressed checkpoint. Its chunks are
// materialized on disk at creation time; the snapshot handle itself only
// holds the metadata.
type Snapshot struct {
	Height       uint64
	Root         common.Hash
	ChunkDigests []common.Hash

	dir string
}

// NumChunks returns the number of chunks the snapshot decomposes into.
func (s *Snapshot) NumChunks() int {
	return len(s.ChunkDigests)
}

func chunkFile(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk-%06d", index))
}

// LoadChunk reads one chunk from disk and verifies it against its
// recorded digest.
func (s *Snapshot) LoadChunk(index int) ([]byte, error) {
	data, err := os.ReadFile(chunkFile(s.dir, index))
	if err != nil {
		return nil, err
	}
	if common.Keccak256(data) != s.ChunkDigests[index] {
		return nil, fmt.Errorf("%w: snapshot %d chunk %d digest mismatch", common.ErrCorrupted, s.Height, index)
	}
	return data, nil
}

// createSnapshot materializes a checkpoint of the source under
// baseDir/<height>, splitting the content into chunks of roughly
// chunkSize bytes.
func createSnapshot(baseDir string, height uint64, chunkSize int, src Source) (*Snapshot, error) {
	dir := filepath.Join(baseDir, strconv.FormatUint(height, 10))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Height: height,
		Root:   src.RootHash(),
		dir:    dir,
	}

	var pairs []chunkPair
	var pending int
	index := 0
	flush := func() error {
		if len(pairs) == 0 {
			return nil
		}
		data, err := encodeChunk(pairs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(chunkFile(dir, index), data, 0600); err != nil {
			return err
		}
		snap.ChunkDigests = append(snap.ChunkDigests, common.Keccak256(data))
		pairs = pairs[:0]
		pending = 0
		index++
		return nil
	}

	err := src.Iterate(func(key, value []byte) error {
		pairs = append(pairs, chunkPair{Key: key, Value: value})
		pending += len(key) + len(value) + 8
		if pending >= chunkSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if err := writeManifest(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func writeManifest(s *Snapshot) error {
	chunks := make([][]byte, len(s.ChunkDigests))
	for i, d := range s.ChunkDigests {
		chunks[i] = d.ToBytes()
	}
	data, err := rlp.EncodeToBytes(&manifestRLP{
		Height: s.Height,
		Root:   s.Root.ToBytes(),
		Chunks: chunks,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, manifestFile), data, 0600)
}

// openSnapshot reopens a checkpoint directory read-only, recovering its
// metadata from the manifest.
func openSnapshot(dir string, height uint64) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var manifest manifestRLP
	if err := rlp.DecodeBytes(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: undecodable snapshot manifest in %s: %v", common.ErrCorrupted, dir, err)
	}
	if manifest.Height != height {
		return nil, fmt.Errorf("%w: snapshot directory %s contains manifest for height %d", common.ErrCorrupted, dir, manifest.Height)
	}
	snap := &Snapshot{
		Height: manifest.Height,
		Root:   common.HashFromBytes(manifest.Root),
		dir:    dir,
	}
	for _, d := range manifest.Chunks {
		snap.ChunkDigests = append(snap.ChunkDigests, common.HashFromBytes(d))
	}
	return snap, nil
}
