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

// LruCache is a fixed-capacity cache evicting the least recently used
// entry on overflow. It is not safe for concurrent use.
type LruCache[K comparable, V any] struct {
	entries  map[K]*lruEntry[K, V]
	capacity int
	head     *lruEntry[K, V]
	tail     *lruEntry[K, V]
}

type lruEntry[K comparable, V any] struct {
	key  K
	val  V
	prev *lruEntry[K, V]
	next *lruEntry[K, V]
}

// NewLruCache creates a cache holding at most capacity entries.
func NewLruCache[K comparable, V any](capacity int) *LruCache[K, V] {
	return &LruCache[K, V]{
		entries:  make(map[K]*lruEntry[K, V], capacity),
		capacity: capacity,
	}
}

// Get returns the cached value for the key and marks it as used.
func (c *LruCache[K, V]) Get(key K) (V, bool) {
	var val V
	item, exists := c.entries[key]
	if exists {
		val = item.val
		c.touch(item)
	}
	return val, exists
}

// Set associates the value to the key, marking it as used. An existing
// entry is updated in place; otherwise the least recently used entry
// makes room if the cache is full.
func (c *LruCache[K, V]) Set(key K, val V) {
	item, exists := c.entries[key]
	if exists {
		item.val = val
		c.touch(item)
		return
	}
	if len(c.entries) >= c.capacity {
		item = c.dropLast()
	} else {
		item = new(lruEntry[K, V])
	}
	item.key = key
	item.val = val
	c.entries[key] = item

	item.prev = nil
	item.next = c.head
	if c.head != nil {
		c.head.prev = item
	}
	c.head = item
	if c.tail == nil {
		c.tail = c.head
	}
}

// Remove drops the entry for the key, returning the removed value.
func (c *LruCache[K, V]) Remove(key K) (V, bool) {
	item, exists := c.entries[key]
	if !exists {
		var none V
		return none, false
	}
	delete(c.entries, key)
	if c.head == c.tail {
		c.head = nil
		c.tail = nil
		return item.val, true
	}
	if item.next != nil {
		item.next.prev = item.prev
		if item == c.head {
			c.head = item.next
		}
	}
	if item.prev != nil {
		item.prev.next = item.next
		if item == c.tail {
			c.tail = item.prev
		}
	}
	return item.val, true
}

// Len returns the number of cached entries.
func (c *LruCache[K, V]) Len() int {
	return len(c.entries)
}

// Clear drops all entries.
func (c *LruCache[K, V]) Clear() {
	if len(c.entries) > 0 {
		c.entries = make(map[K]*lruEntry[K, V], c.capacity)
	}
	c.head = nil
	c.tail = nil
}

// touch moves the entry to the head of the usage queue.
func (c *LruCache[K, V]) touch(item *lruEntry[K, V]) {
	if item == c.head {
		return
	}
	item.prev.next = item.next
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.tail = item.prev
	}
	item.prev = nil
	item.next = c.head
	c.head.prev = item
	c.head = item
}

// dropLast unlinks the least recently used entry and returns it for
// reuse.
func (c *LruCache[K, V]) dropLast() *lruEntry[K, V] {
	dropped := c.tail
	delete(c.entries, dropped.key)
	c.tail = dropped.prev
	c.tail.next = nil
	return dropped
}
