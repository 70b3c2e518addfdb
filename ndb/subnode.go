/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Sat Mar 16 11:40:03 2019 mstenber
 * Last modified: Tue Mar 19 18:20:51 2019 mstenber
 * Edit time:     44 min
 *
 */

package ndb

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
)

const (
	sblockHeaderSize = 8
	slEntrySize      = 24
	siEntrySize      = 16
)

func (self *Directory) loadSubnodeBlock(bid BID) (*TreePage[NID, BID, SubnodeEntry], error) {
	if !bid.IsInternal() {
		return nil, Corruptf("subnode tree", "%v is not internal", bid)
	}
	b, err := self.readBlock(bid)
	if err != nil {
		return nil, err
	}
	if len(b) < sblockHeaderSize || b[0] != BlockTypeSBlock {
		return nil, Corruptf("subnode tree", "%v is not a subnode block", bid)
	}
	le := binary.LittleEndian
	level := int(b[1])
	cEnt := int(le.Uint16(b[2:]))
	esize := slEntrySize
	switch level {
	case 0:
	case 1:
		esize = siEntrySize
	default:
		return nil, Corruptf("subnode tree", "%v invalid level %d", bid, level)
	}
	if sblockHeaderSize+cEnt*esize > len(b) {
		return nil, Corruptf("subnode tree", "%v %d entries do not fit", bid, cEnt)
	}
	p := &TreePage[NID, BID, SubnodeEntry]{Level: level, Keys: make([]NID, cEnt)}
	if level > 0 {
		p.Children = make([]BID, cEnt)
	} else {
		p.Values = make([]SubnodeEntry, cEnt)
	}
	for i := 0; i < cEnt; i++ {
		e := b[sblockHeaderSize+i*esize:]
		nid := NID(le.Uint32(e))
		p.Keys[i] = nid
		if level > 0 {
			p.Children[i] = BID(le.Uint64(e[8:]))
			continue
		}
		p.Values[i] = SubnodeEntry{NID: nid,
			DataBID:    BID(le.Uint64(e[8:])),
			SubnodeBID: BID(le.Uint64(e[16:]))}
	}
	return p, nil
}

func (self *Directory) subnodeWalker() *TreeWalker[NID, BID, SubnodeEntry] {
	return &TreeWalker[NID, BID, SubnodeEntry]{
		Name:     "subnode tree",
		Load:     self.loadSubnodeBlock,
		MaxDepth: self.Limits.MaxTreeDepth,
	}
}

func (self *Directory) checkSubnodeEntry(e SubnodeEntry) error {
	if _, ok := self.Block(e.DataBID); !ok {
		return Corruptf("subnode tree", "%v data %v not in block b-tree", e.NID, e.DataBID)
	}
	if e.SubnodeBID == 0 {
		return nil
	}
	if _, ok := self.Block(e.SubnodeBID); !ok {
		return Corruptf("subnode tree", "%v subnodes %v not in block b-tree", e.NID, e.SubnodeBID)
	}
	return nil
}

// Subnodes returns the entries of the subnode tree rooted at bid in
// ascending NID order. bid 0 denotes no subnodes.
func (self *Directory) Subnodes(bid BID) ([]SubnodeEntry, error) {
	mlog.Printf2("ndb/subnode", "Subnodes %v", bid)
	if bid == 0 {
		return nil, nil
	}
	var l []SubnodeEntry
	err := self.subnodeWalker().Walk(bid, func(nid NID, e SubnodeEntry) error {
		err := self.checkSubnodeEntry(e)
		if err != nil {
			return err
		}
		l = append(l, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// FindSubnode looks up single subnode by its (local) NID.
func (self *Directory) FindSubnode(bid BID, nid NID) (SubnodeEntry, bool, error) {
	mlog.Printf2("ndb/subnode", "FindSubnode %v %v", bid, nid)
	if bid == 0 {
		return SubnodeEntry{}, false, nil
	}
	e, found, err := self.subnodeWalker().Find(bid, nid)
	if err != nil || !found {
		return e, found, err
	}
	err = self.checkSubnodeEntry(e)
	if err != nil {
		return e, false, err
	}
	return e, true, nil
}

// FindSubnodeByType returns the first subnode (in NID order) of
// the given type.
func (self *Directory) FindSubnodeByType(bid BID, t NIDType) (SubnodeEntry, bool, error) {
	l, err := self.Subnodes(bid)
	if err != nil {
		return SubnodeEntry{}, false, err
	}
	for _, e := range l {
		if e.NID.Type() == t {
			return e, true, nil
		}
	}
	return SubnodeEntry{}, false, nil
}
