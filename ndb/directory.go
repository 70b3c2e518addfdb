/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 11:20:17 2019 mstenber
 * Last modified: Wed Mar 20 09:12:31 2019 mstenber
 * Edit time:     83 min
 *
 */

package ndb

import (
	"sort"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/storage"
	"github.com/pkg/errors"
)

// Directory is the opened node database: the decoded header, and
// the node and block b-trees flattened into maps.
type Directory struct {
	Header *Header
	Limits Limits

	backend storage.Backend
	nodes   map[NID]NodeEntry
	blocks  map[BID]BlockEntry
}

// Open decodes the header and both b-trees of the container. The
// backend is not closed by the Directory.
func Open(backend storage.Backend, limits Limits) (*Directory, error) {
	self := &Directory{Limits: *limits.Init(), backend: backend}
	if backend.Size() < HeaderSize {
		return nil, formatErrorf("container too short (%d bytes)", backend.Size())
	}
	b, err := backend.ReadData(0, HeaderSize)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read header")
	}
	self.Header, err = DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	root := &self.Header.Root

	self.nodes = make(map[NID]NodeEntry)
	nbt := TreeWalker[uint64, BREF, NodeEntry]{
		Name:     nbtKind.name,
		MaxDepth: self.Limits.MaxTreeDepth,
		Load: func(ref BREF) (*TreePage[uint64, BREF, NodeEntry], error) {
			return loadBTPage(self, nbtKind, ref, decodeNodeEntry)
		}}
	err = nbt.Walk(root.NBTRootPage, func(key uint64, e NodeEntry) error {
		if key>>32 != 0 {
			return Corruptf(nbtKind.name, "node key %x wider than NID", key)
		}
		if _, ok := self.nodes[e.NID]; ok {
			return Corruptf(nbtKind.name, "duplicate %v", e.NID)
		}
		self.nodes[e.NID] = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	self.blocks = make(map[BID]BlockEntry)
	bbt := TreeWalker[uint64, BREF, BlockEntry]{
		Name:     bbtKind.name,
		MaxDepth: self.Limits.MaxTreeDepth,
		Load: func(ref BREF) (*TreePage[uint64, BREF, BlockEntry], error) {
			return loadBTPage(self, bbtKind, ref, decodeBlockEntry)
		}}
	err = bbt.Walk(root.BBTRootPage, func(key uint64, e BlockEntry) error {
		self.blocks[BID(key)] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	mlog.Printf2("ndb/directory", "Open: %d nodes, %d blocks",
		len(self.nodes), len(self.blocks))
	return self, nil
}

func (self *Directory) Node(nid NID) (NodeEntry, bool) {
	e, ok := self.nodes[nid]
	return e, ok
}

func (self *Directory) Block(bid BID) (BlockEntry, bool) {
	e, ok := self.blocks[bid.Key()]
	return e, ok
}

func (self *Directory) NodeCount() int {
	return len(self.nodes)
}

func (self *Directory) BlockCount() int {
	return len(self.blocks)
}

// Nodes returns all node entries in ascending NID order.
func (self *Directory) Nodes() []NodeEntry {
	l := make([]NodeEntry, 0, len(self.nodes))
	for _, e := range self.nodes {
		l = append(l, e)
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].NID < l[j].NID
	})
	return l
}

// Blocks returns all block entries in ascending BID order.
func (self *Directory) Blocks() []BlockEntry {
	l := make([]BlockEntry, 0, len(self.blocks))
	for _, e := range self.blocks {
		l = append(l, e)
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].BREF.BID.Key() < l[j].BREF.BID.Key()
	})
	return l
}

// NodesOfType returns node entries of the given type in ascending
// NID order.
func (self *Directory) NodesOfType(t NIDType) []NodeEntry {
	var l []NodeEntry
	for _, e := range self.Nodes() {
		if e.NID.Type() == t {
			l = append(l, e)
		}
	}
	return l
}

// Verify checks that every BID referenced from the node b-tree
// resolves in the block b-tree. Open does not do this, as single
// dangling reference should only break the node that has it.
func (self *Directory) Verify() error {
	for _, e := range self.Nodes() {
		if _, ok := self.Block(e.DataBID); !ok {
			return Corruptf("node", "%v data %v not in block b-tree", e.NID, e.DataBID)
		}
		if e.SubnodeBID == 0 {
			continue
		}
		if _, ok := self.Block(e.SubnodeBID); !ok {
			return Corruptf("node", "%v subnodes %v not in block b-tree", e.NID, e.SubnodeBID)
		}
	}
	return nil
}
