/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 08:30:02 2019 mstenber
 * Last modified: Wed Mar 20 10:02:44 2019 mstenber
 * Edit time:     96 min
 *
 */

package ndb

import (
	"sort"

	"github.com/fingon/go-pstndb/mlog"
)

// TreeKey covers the key widths of the sorted trees in the
// container.
type TreeKey interface {
	~uint16 | ~uint32 | ~uint64
}

// TreePage is one decoded page of a sorted tree. Level 0 pages
// carry Values, others carry Children; Keys is parallel to
// whichever is used. Keys of intermediate pages are the lowest key
// of the corresponding child.
type TreePage[K TreeKey, R any, V any] struct {
	Level    int
	Keys     []K
	Children []R
	Values   []V
}

// TreeWalker implements the page walking shared by the node and
// block b-trees, subnode trees and heap b-trees. Only the page
// decoding (Load) differs between them.
type TreeWalker[K TreeKey, R any, V any] struct {
	// Name is used in errors.
	Name string

	Load func(ref R) (*TreePage[K, R, V], error)

	// MaxDepth bounds the number of levels visited.
	MaxDepth int
}

type treeBounds[K TreeKey] struct {
	low, high       K
	hasLow, hasHigh bool
}

func (self *treeBounds[K]) contains(k K) bool {
	if self.hasLow && k < self.low {
		return false
	}
	if self.hasHigh && k >= self.high {
		return false
	}
	return true
}

type treeWalk[K TreeKey, R any, V any] struct {
	*TreeWalker[K, R, V]
	visit   func(K, V) error
	last    K
	hasLast bool
}

func (self *TreeWalker[K, R, V]) load(ref R, parentLevel, depth int, bounds treeBounds[K]) (*TreePage[K, R, V], error) {
	if depth >= self.MaxDepth {
		return nil, Corruptf(self.Name, "depth exceeds %d", self.MaxDepth)
	}
	p, err := self.Load(ref)
	if err != nil {
		return nil, err
	}
	if p.Level < 0 {
		return nil, Corruptf(self.Name, "invalid level %d", p.Level)
	}
	if parentLevel >= 0 && p.Level != parentLevel-1 {
		return nil, Corruptf(self.Name, "child level %d under level %d", p.Level, parentLevel)
	}
	n := len(p.Values)
	if p.Level > 0 {
		n = len(p.Children)
	}
	if len(p.Keys) != n {
		return nil, Corruptf(self.Name, "%d keys for %d entries", len(p.Keys), n)
	}
	for i, k := range p.Keys {
		if i > 0 && k <= p.Keys[i-1] {
			return nil, Corruptf(self.Name, "keys out of order at %d (%v <= %v)", i, k, p.Keys[i-1])
		}
		if !bounds.contains(k) {
			return nil, Corruptf(self.Name, "key %v outside parent range", k)
		}
	}
	return p, nil
}

func (self *treeWalk[K, R, V]) walk(ref R, parentLevel, depth int, bounds treeBounds[K]) error {
	p, err := self.load(ref, parentLevel, depth, bounds)
	if err != nil {
		return err
	}
	if p.Level == 0 {
		for i, k := range p.Keys {
			if self.hasLast && k <= self.last {
				return Corruptf(self.Name, "duplicate or unordered key %v", k)
			}
			self.last = k
			self.hasLast = true
			err = self.visit(k, p.Values[i])
			if err != nil {
				return err
			}
		}
		return nil
	}
	for i, k := range p.Keys {
		cb := treeBounds[K]{low: k, hasLow: true,
			high: bounds.high, hasHigh: bounds.hasHigh}
		if i < len(p.Keys)-1 {
			cb.high = p.Keys[i+1]
			cb.hasHigh = true
		}
		err = self.walk(p.Children[i], p.Level, depth+1, cb)
		if err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every leaf entry in ascending key order. It fails
// with a CorruptionError on page level mismatches, unordered or
// duplicate keys and excessive depth. An error returned by visit
// stops the walk and is returned as-is.
func (self *TreeWalker[K, R, V]) Walk(root R, visit func(key K, value V) error) error {
	mlog.Printf2("ndb/tree", "%s.Walk", self.Name)
	w := treeWalk[K, R, V]{TreeWalker: self, visit: visit}
	return w.walk(root, -1, 0, treeBounds[K]{})
}

// Find looks up a single key by binary search on each level.
func (self *TreeWalker[K, R, V]) Find(root R, key K) (value V, found bool, err error) {
	mlog.Printf2("ndb/tree", "%s.Find %v", self.Name, key)
	ref := root
	parentLevel := -1
	bounds := treeBounds[K]{}
	for depth := 0; ; depth++ {
		var p *TreePage[K, R, V]
		p, err = self.load(ref, parentLevel, depth, bounds)
		if err != nil {
			return
		}
		// First index with key greater than the one we look for
		i := sort.Search(len(p.Keys), func(i int) bool {
			return p.Keys[i] > key
		})
		if p.Level == 0 {
			if i > 0 && p.Keys[i-1] == key {
				return p.Values[i-1], true, nil
			}
			return
		}
		if i == 0 {
			return
		}
		bounds = treeBounds[K]{low: p.Keys[i-1], hasLow: true,
			high: bounds.high, hasHigh: bounds.hasHigh}
		if i < len(p.Keys) {
			bounds.high = p.Keys[i]
			bounds.hasHigh = true
		}
		ref = p.Children[i-1]
		parentLevel = p.Level
	}
}
