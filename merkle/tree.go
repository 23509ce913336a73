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
	"encoding/binary"

	"github.com/strata-db/strata/common"
	"github.com/strata-db/strata/store"
	"github.com/syndtr/goleveldb/leveldb"
)

// Tree is an authenticated search tree over byte keys, shaped as a treap
// whose heap priorities derive from key digests. That makes the structure
// a pure function of the stored key set: any sequence of inserts and
// deletes arriving at the same content yields the same shape and the same
// root hash. Nodes are loaded lazily from the node database and written
// back on Commit; in between, mutations happen on the in-memory structure
// only. A Tree is owned by one goroutine at a time.
type Tree struct {
	ndb  *nodeDB
	root *node
}

// newTree opens the tree on top of the given node database, loading the
// root of the latest committed height if there is one.
func newTree(ndb *nodeDB) (*Tree, error) {
	t := &Tree{ndb: ndb}
	height, ok, err := ndb.latestHeight()
	if err != nil {
		return nil, err
	}
	if !ok {
		return t, nil
	}
	root, ok, err := ndb.rootAt(height)
	if err != nil {
		return nil, err
	}
	if !ok || root.IsZero() {
		return t, nil
	}
	t.root, err = ndb.getNode(root.ToBytes())
	if err != nil {
		return nil, err
	}
	return t, nil
}

// loadChild returns the requested child of the node, fetching it from the
// node database if it exists but is not in memory yet.
func (t *Tree) loadChild(n *node, left bool) (*node, error) {
	if left {
		if n.left != nil || n.leftHash == nil {
			return n.left, nil
		}
		c, err := t.ndb.getNode(n.leftHash)
		if err != nil {
			return nil, err
		}
		n.left = c
		return c, nil
	}
	if n.right != nil || n.rightHash == nil {
		return n.right, nil
	}
	c, err := t.ndb.getNode(n.rightHash)
	if err != nil {
		return nil, err
	}
	n.right = c
	return c, nil
}

// outranks reports whether a takes heap precedence over b. Key digests
// provide the priorities; the key itself breaks the unlikely ties, so the
// ranking is a strict total order and the treap shape is unique.
func outranks(a, b *node) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return bytes.Compare(a.key, b.key) > 0
}

func (t *Tree) rotateRight(n *node) (*node, error) {
	l, err := t.loadChild(n, true)
	if err != nil {
		return nil, err
	}
	n.left, n.leftHash = l.right, l.rightHash
	l.right, l.rightHash = n, nil
	n.markDirty()
	l.markDirty()
	return l, nil
}

func (t *Tree) rotateLeft(n *node) (*node, error) {
	r, err := t.loadChild(n, false)
	if err != nil {
		return nil, err
	}
	n.right, n.rightHash = r.left, r.leftHash
	r.left, r.leftHash = n, nil
	n.markDirty()
	r.markDirty()
	return r, nil
}

// insert places the key in search order and rotates it up until the heap
// order on priorities is restored.
func (t *Tree) insert(n *node, key, value []byte) (*node, error) {
	if n == nil {
		return &node{key: store.Copy(key), value: store.Copy(value), priority: nodePriority(key)}, nil
	}
	switch cmp := bytes.Compare(key, n.key); {
	case cmp == 0:
		n.value = store.Copy(value)
		n.markDirty()
		return n, nil
	case cmp < 0:
		c, err := t.loadChild(n, true)
		if err != nil {
			return nil, err
		}
		nc, err := t.insert(c, key, value)
		if err != nil {
			return nil, err
		}
		n.left, n.leftHash = nc, nil
		n.markDirty()
		if outranks(nc, n) {
			return t.rotateRight(n)
		}
		return n, nil
	default:
		c, err := t.loadChild(n, false)
		if err != nil {
			return nil, err
		}
		nc, err := t.insert(c, key, value)
		if err != nil {
			return nil, err
		}
		n.right, n.rightHash = nc, nil
		n.markDirty()
		if outranks(nc, n) {
			return t.rotateLeft(n)
		}
		return n, nil
	}
}

func (t *Tree) remove(n *node, key []byte) (*node, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	cmp := bytes.Compare(key, n.key)
	if cmp != 0 {
		left := cmp < 0
		c, err := t.loadChild(n, left)
		if err != nil {
			return nil, false, err
		}
		nc, removed, err := t.remove(c, key)
		if err != nil {
			return nil, false, err
		}
		if !removed {
			return n, false, nil
		}
		if left {
			n.left, n.leftHash = nc, nil
		} else {
			n.right, n.rightHash = nc, nil
		}
		n.markDirty()
		return n, true, nil
	}
	return t.sink(n)
}

// sink removes the node from its subtree by rotating its higher ranking
// child above it until a side runs empty, preserving the heap order of
// everything around it.
func (t *Tree) sink(n *node) (*node, bool, error) {
	l, err := t.loadChild(n, true)
	if err != nil {
		return nil, false, err
	}
	r, err := t.loadChild(n, false)
	if err != nil {
		return nil, false, err
	}
	switch {
	case l == nil && r == nil:
		return nil, true, nil
	case l == nil:
		return r, true, nil
	case r == nil:
		return l, true, nil
	}
	if outranks(l, r) {
		nn, err := t.rotateRight(n)
		if err != nil {
			return nil, false, err
		}
		nc, _, err := t.sink(n)
		if err != nil {
			return nil, false, err
		}
		nn.right, nn.rightHash = nc, nil
		nn.markDirty()
		return nn, true, nil
	}
	nn, err := t.rotateLeft(n)
	if err != nil {
		return nil, false, err
	}
	nc, _, err := t.sink(n)
	if err != nil {
		return nil, false, err
	}
	nn.left, nn.leftHash = nc, nil
	nn.markDirty()
	return nn, true, nil
}

// Get returns the value stored for the given key.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	n := t.root
	for n != nil {
		switch cmp := bytes.Compare(key, n.key); {
		case cmp == 0:
			return store.Copy(n.value), true, nil
		case cmp < 0:
			c, err := t.loadChild(n, true)
			if err != nil {
				return nil, false, err
			}
			n = c
		default:
			c, err := t.loadChild(n, false)
			if err != nil {
				return nil, false, err
			}
			n = c
		}
	}
	return nil, false, nil
}

// Set stores the given value under the given key.
func (t *Tree) Set(key, value []byte) error {
	root, err := t.insert(t.root, key, value)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// Delete removes the entry stored for the given key, if any.
func (t *Tree) Delete(key []byte) error {
	root, removed, err := t.remove(t.root, key)
	if err != nil {
		return err
	}
	if removed {
		t.root = root
	}
	return nil
}

// Next returns the entry with the smallest key strictly greater than the
// given key.
func (t *Tree) Next(key []byte) (*store.Entry, error) {
	return t.next(t.root, key)
}

func (t *Tree) next(n *node, key []byte) (*store.Entry, error) {
	if n == nil {
		return nil, nil
	}
	if bytes.Compare(n.key, key) <= 0 {
		c, err := t.loadChild(n, false)
		if err != nil {
			return nil, err
		}
		return t.next(c, key)
	}
	c, err := t.loadChild(n, true)
	if err != nil {
		return nil, err
	}
	entry, err := t.next(c, key)
	if err != nil || entry != nil {
		return entry, err
	}
	return &store.Entry{Key: store.Copy(n.key), Value: store.Copy(n.value)}, nil
}

// Prev returns the entry with the largest key strictly less than the
// given key; a nil key yields the last entry of the tree.
func (t *Tree) Prev(key []byte) (*store.Entry, error) {
	return t.prev(t.root, key)
}

func (t *Tree) prev(n *node, key []byte) (*store.Entry, error) {
	if n == nil {
		return nil, nil
	}
	if key != nil && bytes.Compare(n.key, key) >= 0 {
		c, err := t.loadChild(n, true)
		if err != nil {
			return nil, err
		}
		return t.prev(c, key)
	}
	c, err := t.loadChild(n, false)
	if err != nil {
		return nil, err
	}
	entry, err := t.prev(c, key)
	if err != nil || entry != nil {
		return entry, err
	}
	return &store.Entry{Key: store.Copy(n.key), Value: store.Copy(n.value)}, nil
}

// Iterate visits all entries of the tree in ascending key order.
func (t *Tree) Iterate(visit func(key, value []byte) error) error {
	return t.iterate(t.root, visit)
}

func (t *Tree) iterate(n *node, visit func(key, value []byte) error) error {
	if n == nil {
		return nil
	}
	l, err := t.loadChild(n, true)
	if err != nil {
		return err
	}
	if err := t.iterate(l, visit); err != nil {
		return err
	}
	if err := visit(n.key, n.value); err != nil {
		return err
	}
	r, err := t.loadChild(n, false)
	if err != nil {
		return err
	}
	return t.iterate(r, visit)
}

// RootHash returns the hash committing to the current content of the
// tree, recomputing it over all dirty paths. The empty tree has the zero
// hash.
func (t *Tree) RootHash() common.Hash {
	if t.root == nil {
		return common.Hash{}
	}
	return common.HashFromBytes(t.root.computeHash())
}

// Commit writes all dirty nodes and the root record for the given height
// to the node database in one batch and returns the root hash.
func (t *Tree) Commit(height uint64) (common.Hash, error) {
	root := t.RootHash()
	batch := new(leveldb.Batch)
	persistNode(batch, t.root)
	batch.Put(rootKey(height), root.ToBytes())
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, height)
	batch.Put(latestHeightKey, heightBytes)
	if err := t.ndb.db.Write(batch, nil); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

func persistNode(batch *leveldb.Batch, n *node) {
	if n == nil || n.persisted {
		return
	}
	persistNode(batch, n.left)
	persistNode(batch, n.right)
	data, err := n.encode()
	if err != nil {
		// rlp encoding of byte slices and unsigned integers cannot fail
		panic(err)
	}
	batch.Put(nodeKey(n.hash), data)
	n.persisted = true
}

// RootAt returns the root hash committed at the given height, which stays
// resolvable across later commits.
func (t *Tree) RootAt(height uint64) (common.Hash, bool, error) {
	return t.ndb.rootAt(height)
}

// LatestHeight returns the height of the most recent commit.
func (t *Tree) LatestHeight() (uint64, bool, error) {
	return t.ndb.latestHeight()
}
