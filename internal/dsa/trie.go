// Package dsa provides the radix tree used for search-term prefix lookups.
// Uses go-radix for compressed prefix tree (radix tree).
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree (radix tree).
// Search terms typed into a collection share long prefixes, so the
// compressed form keeps one node per shared run instead of one per rune.
//
// Time Complexity: O(k) where k is key length
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{
		tree: radix.New(),
	}
}

// Insert adds a key-value pair to the tree, replacing any previous value.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// InsertIfAbsent adds key only when it is not already present.
// Returns true if the key was added.
func (t *Trie[V]) InsertIfAbsent(key string, value V) bool {
	if _, found := t.tree.Get(key); found {
		return false
	}
	t.Insert(key, value)
	return true
}

// WalkPrefix calls fn for every key-value pair whose key starts with prefix,
// in lexicographic key order.
// Time Complexity: O(k + m) where k is prefix length, m is number of matches.
func (t *Trie[V]) WalkPrefix(prefix string, fn func(key string, value V)) {
	t.tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		if val, ok := v.(V); ok {
			fn(k, val)
		}
		return false // continue walking
	})
}
