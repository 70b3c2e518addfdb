/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 08:12:30 2019 mstenber
 * Last modified: Tue Mar 19 09:40:12 2019 mstenber
 * Edit time:     9 min
 *
 */

package ndb

const (
	DefaultMaxTreeDepth     = 16
	DefaultMaxDataTreeDepth = 2
	DefaultMaxDataSize      = 512 << 20

	// No tree in the format comes even close.
	hardMaxTreeDepth = 64
)

// Limits bound the work done on behalf of (possibly hostile)
// container content. Zero values mean defaults.
type Limits struct {
	// MaxTreeDepth bounds the node, block, subnode and heap b-trees.
	MaxTreeDepth int

	// MaxDataTreeDepth bounds the internal block levels of a data
	// tree (format maximum is 2).
	MaxDataTreeDepth int

	// MaxDataSize bounds the total size of a single reassembled
	// data tree.
	MaxDataSize int
}

func (self Limits) Init() *Limits {
	if self.MaxTreeDepth <= 0 {
		self.MaxTreeDepth = DefaultMaxTreeDepth
	}
	if self.MaxTreeDepth > hardMaxTreeDepth {
		self.MaxTreeDepth = hardMaxTreeDepth
	}
	if self.MaxDataTreeDepth <= 0 {
		self.MaxDataTreeDepth = DefaultMaxDataTreeDepth
	}
	if self.MaxDataSize <= 0 {
		self.MaxDataSize = DefaultMaxDataSize
	}
	return &self
}
