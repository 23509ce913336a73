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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/strata-db/strata/common"
	"github.com/syndtr/goleveldb/leveldb"
)

// tableSpace divides the node database into spaces by prefixing each key.
type tableSpace byte

const (
	// nodeSpace holds tree nodes addressed by their hash.
	nodeSpace tableSpace = 'n'
	// rootSpace holds the root hash per committed height.
	rootSpace tableSpace = 'r'
	// metaSpace holds bookkeeping records, currently the latest height.
	metaSpace tableSpace = 'm'
)

var latestHeightKey = []byte{byte(metaSpace), 'l'}

func nodeKey(hash []byte) []byte {
	return append([]byte{byte(nodeSpace)}, hash...)
}

func rootKey(height uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(rootSpace)
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

// nodeReadCacheSize bounds the number of encoded nodes kept in memory to
// shortcut repeated database reads along hot paths near the root.
const nodeReadCacheSize = 1 << 14

// nodeDB persists tree nodes in a leveldb instance, addressed by node
// hash. Since node hashes are content addresses, committed nodes are
// immutable and historic roots stay resolvable after later commits.
// Immutability also makes the read cache trivially consistent.
type nodeDB struct {
	db    *leveldb.DB
	cache *common.LruCache[common.Hash, []byte]
}

func openNodeDB(dir string) (*nodeDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open node database %s: %w", dir, err)
	}
	return &nodeDB{
		db:    db,
		cache: common.NewLruCache[common.Hash, []byte](nodeReadCacheSize),
	}, nil
}

// getNode loads and decodes the node persisted under the given hash. A
// missing node is a broken hash reference and reported as corruption.
func (ndb *nodeDB) getNode(hash []byte) (*node, error) {
	if data, exists := ndb.cache.Get(common.HashFromBytes(hash)); exists {
		return decodeNode(hash, data)
	}
	data, err := ndb.db.Get(nodeKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: missing tree node %x", common.ErrCorrupted, hash)
	}
	if err != nil {
		return nil, err
	}
	ndb.cache.Set(common.HashFromBytes(hash), data)
	return decodeNode(hash, data)
}

// rootAt returns the root hash committed at the given height.
func (ndb *nodeDB) rootAt(height uint64) (common.Hash, bool, error) {
	data, err := ndb.db.Get(rootKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, err
	}
	if len(data) != common.HashSize {
		return common.Hash{}, false, fmt.Errorf("%w: malformed root record for height %d", common.ErrCorrupted, height)
	}
	return common.HashFromBytes(data), true, nil
}

// latestHeight returns the highest committed height, if any.
func (ndb *nodeDB) latestHeight() (uint64, bool, error) {
	data, err := ndb.db.Get(latestHeightKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: malformed latest height record", common.ErrCorrupted)
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (ndb *nodeDB) close() error {
	return ndb.db.Close()
}
