// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package merkle provides the persistent, cryptographically authenticated
// store of the module. It combines a deterministically shaped
// authenticated search tree with a leveldb node database, produces
// interchange-format existence and non-existence proofs, and checkpoints
// itself through the snapshot manager on commit.
package merkle

import (
	"fmt"
	"path/filepath"

	ics23 "github.com/cosmos/ics23/go"
	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/snapshot"
	"github.com/strata-db/strata/store"
)

// Config carries the construction options of a Store.
type Config struct {
	// SnapshotFilters are the checkpoint policies evaluated on every
	// commit. Without any filter no snapshots are created, but existing
	// on-disk checkpoints are still served.
	SnapshotFilters []snapshot.Filter
	// SnapshotChunkSize bounds the serialized size of one snapshot chunk.
	SnapshotChunkSize int
	// MaxKeySize and MaxValueSize bound accepted writes.
	MaxKeySize   int
	MaxValueSize int
}

// DefaultConfig returns the configuration used where no tuning is needed.
func DefaultConfig() Config {
	return Config{
		SnapshotChunkSize: snapshot.DefaultChunkSize,
		MaxKeySize:        256,
		MaxValueSize:      1 << 20,
	}
}

// Store is the merkle-tree-backed persistent store. It persists under a
// directory given at construction, with the node database and the
// snapshot checkpoints in sibling subdirectories.
//
// Store implements store.KeyValueStore, snapshot.Source, snapshot.Target,
// and the proofclient transport contract.
type Store struct {
	config    Config
	ndb       *nodeDB
	tree      *Tree
	snapshots *snapshot.Manager
}

// NewStore opens (or creates) the store rooted at the given directory.
func NewStore(dir string, config Config) (*Store, error) {
	ndb, err := openNodeDB(filepath.Join(dir, "data"))
	if err != nil {
		return nil, err
	}
	tree, err := newTree(ndb)
	if err != nil {
		ndb.close()
		return nil, err
	}
	snapshots, err := snapshot.NewManager(filepath.Join(dir, "snapshots"), config.SnapshotFilters, config.SnapshotChunkSize)
	if err != nil {
		ndb.close()
		return nil, err
	}
	return &Store{
		config:    config,
		ndb:       ndb,
		tree:      tree,
		snapshots: snapshots,
	}, nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	return s.tree.Get(key)
}

func (s *Store) GetNext(key []byte) (*store.Entry, error) {
	return s.tree.Next(key)
}

func (s *Store) GetPrev(key []byte) (*store.Entry, error) {
	return s.tree.Prev(key)
}

func (s *Store) Put(key, value []byte) error {
	if s.config.MaxKeySize > 0 && len(key) > s.config.MaxKeySize {
		return fmt.Errorf("key length %d exceeds the configured limit of %d", len(key), s.config.MaxKeySize)
	}
	if s.config.MaxValueSize > 0 && len(value) > s.config.MaxValueSize {
		return fmt.Errorf("value length %d exceeds the configured limit of %d", len(value), s.config.MaxValueSize)
	}
	return s.tree.Set(key, value)
}

func (s *Store) Delete(key []byte) error {
	return s.tree.Delete(key)
}

// RootHash returns the commitment to the current content of the store.
func (s *Store) RootHash() common.Hash {
	return s.tree.RootHash()
}

// RootAt returns the root hash committed at the given height.
func (s *Store) RootAt(height uint64) (common.Hash, bool, error) {
	return s.tree.RootAt(height)
}

// Iterate visits all entries of the store in ascending key order.
func (s *Store) Iterate(visit func(key, value []byte) error) error {
	return s.tree.Iterate(visit)
}

// Commit persists all pending changes under the given height and lets the
// snapshot policies checkpoint and prune. It returns the committed root
// hash.
func (s *Store) Commit(height uint64) (common.Hash, error) {
	root, err := s.tree.Commit(height)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.snapshots.MaybeCreateSnapshot(height, s); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// Snapshots exposes the snapshot registry of this store.
func (s *Store) Snapshots() *snapshot.Manager {
	return s.snapshots
}

// Prove constructs an existence or non-existence proof for the given key
// against the current root hash.
func (s *Store) Prove(key []byte) (*ics23.CommitmentProof, error) {
	return s.tree.Prove(key)
}

// Query answers a trust-sensitive read: the current root hash followed by
// the serialized proof for the key. The wire format is
// root_hash(32 bytes) || proof_bytes.
func (s *Store) Query(key []byte) ([]byte, error) {
	proof, err := s.Prove(key)
	if err != nil {
		return nil, err
	}
	proofBytes, err := proof.Marshal()
	if err != nil {
		return nil, err
	}
	root := s.tree.RootHash()
	return append(root.ToBytes(), proofBytes...), nil
}

// Close releases the node database. The store must not be used afterward.
func (s *Store) Close() error {
	return s.ndb.close()
}
