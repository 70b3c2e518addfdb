/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 10:05:51 2019 mstenber
 * Last modified: Tue Mar 19 16:12:40 2019 mstenber
 * Edit time:     58 min
 *
 */

package ndb

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
)

const (
	PageSize = 512

	pageEntryAreaSize = 488
	pageTrailerOffset = 496

	PageTypeBBT = 0x80
	PageTypeNBT = 0x81

	btEntrySize  = 24
	bbtEntrySize = 24
	nbtEntrySize = 32
)

type pageKind struct {
	name     string
	ptype    uint8
	leafSize int
}

var (
	nbtKind = pageKind{name: "node b-tree", ptype: PageTypeNBT, leafSize: nbtEntrySize}
	bbtKind = pageKind{name: "block b-tree", ptype: PageTypeBBT, leafSize: bbtEntrySize}
)

// readPage reads and validates single b-tree page, returning the
// (validated) entry area and the page level.
func (self *Directory) readPage(kind pageKind, ref BREF) (entries [][]byte, level int, err error) {
	mlog.Printf2("ndb/page", "readPage %s %v", kind.name, ref)
	b, err := self.backend.ReadData(uint64(ref.IB), PageSize)
	if err != nil {
		err = Corruptf(kind.name, "unable to read page %v: %v", ref, err)
		return
	}
	le := binary.LittleEndian
	t := b[pageTrailerOffset:]
	ptype, ptypeRepeat := t[0], t[1]
	sig := le.Uint16(t[2:])
	crc := le.Uint32(t[4:])
	bid := BID(le.Uint64(t[8:]))
	if ptype != kind.ptype || ptypeRepeat != kind.ptype {
		err = Corruptf(kind.name, "page %v type %x/%x", ref, ptype, ptypeRepeat)
		return
	}
	if bid.Key() != ref.BID.Key() {
		err = Corruptf(kind.name, "page %v has bid %v", ref, bid)
		return
	}
	if ecrc := ComputeCRC(0, b[:pageTrailerOffset]); ecrc != crc {
		err = Corruptf(kind.name, "page %v crc %x != %x", ref, crc, ecrc)
		return
	}
	if esig := ComputeSig(ref.IB, bid); esig != sig {
		err = Corruptf(kind.name, "page %v signature %x != %x", ref, sig, esig)
		return
	}
	cEnt := int(b[pageEntryAreaSize])
	cEntMax := int(b[pageEntryAreaSize+1])
	cbEnt := int(b[pageEntryAreaSize+2])
	level = int(b[pageEntryAreaSize+3])
	esize := kind.leafSize
	if level > 0 {
		esize = btEntrySize
	}
	if cbEnt != esize {
		err = Corruptf(kind.name, "page %v entry size %d != %d", ref, cbEnt, esize)
		return
	}
	if cEnt > cEntMax || cEntMax*cbEnt > pageEntryAreaSize {
		err = Corruptf(kind.name, "page %v entry count %d/%d", ref, cEnt, cEntMax)
		return
	}
	entries = make([][]byte, cEnt)
	for i := range entries {
		entries[i] = b[i*cbEnt : (i+1)*cbEnt]
	}
	return
}

// loadBTPage is the TreeWalker loader shared by the node and block
// b-trees.
func loadBTPage[V any](self *Directory, kind pageKind, ref BREF, decode func(b []byte) (uint64, V)) (*TreePage[uint64, BREF, V], error) {
	entries, level, err := self.readPage(kind, ref)
	if err != nil {
		return nil, err
	}
	p := &TreePage[uint64, BREF, V]{Level: level, Keys: make([]uint64, len(entries))}
	if level > 0 {
		p.Children = make([]BREF, len(entries))
		for i, e := range entries {
			p.Keys[i] = binary.LittleEndian.Uint64(e)
			p.Children[i] = decodeBREF(e[8:])
		}
		return p, nil
	}
	p.Values = make([]V, len(entries))
	for i, e := range entries {
		p.Keys[i], p.Values[i] = decode(e)
	}
	return p, nil
}

func decodeNodeEntry(b []byte) (uint64, NodeEntry) {
	le := binary.LittleEndian
	key := le.Uint64(b)
	return key, NodeEntry{
		NID:        NID(key),
		DataBID:    BID(le.Uint64(b[8:])),
		SubnodeBID: BID(le.Uint64(b[16:])),
		ParentNID:  NID(le.Uint32(b[24:])),
	}
}

func decodeBlockEntry(b []byte) (uint64, BlockEntry) {
	le := binary.LittleEndian
	ref := decodeBREF(b)
	return uint64(ref.BID.Key()), BlockEntry{
		BREF:     ref,
		Size:     le.Uint16(b[16:]),
		RefCount: le.Uint16(b[18:]),
	}
}
