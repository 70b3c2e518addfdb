/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Sat Mar 16 14:10:33 2019 mstenber
 * Last modified: Wed Mar 20 13:37:10 2019 mstenber
 * Edit time:     112 min
 *
 */

// ndbtest package produces valid (and on request, subtly broken)
// containers in memory for tests of the layers above ndb.
package ndbtest

import (
	"encoding/binary"
	"log"
	"sort"

	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/storage"
	"github.com/fingon/go-pstndb/util"
)

const (
	nbtLeafMax  = 15
	bbtLeafMax  = 20
	btEntryMax  = 20
	slEntryMax  = (ndb.MaxBlockDataSize - 8) / 24
	siEntryMax  = (ndb.MaxBlockDataSize - 8) / 16
	xEntryMax   = (ndb.MaxBlockDataSize - 8) / 8
	dataStartIB = 1024
)

type nodeEntry struct {
	key uint64
	ndb.NodeEntry
}

type block struct {
	bid     ndb.BID
	data    []byte
	level   int
	logical int
}

// Builder accumulates blocks and nodes; Build lays them out
// together with the b-tree pages and the header.
type Builder struct {
	// Fanout, if 2 or more, limits the number of entries in b-tree
	// pages, subnode blocks and internal data blocks.
	Fanout int

	// ChunkSize, if set, is the external block size used by
	// AddData.
	ChunkSize int

	blocks  []*block
	byBID   map[ndb.BID]*block
	hidden  map[ndb.BID]bool
	nodes   []nodeEntry
	nextBID uint64
}

func New() *Builder {
	return &Builder{byBID: make(map[ndb.BID]*block),
		hidden: make(map[ndb.BID]bool)}
}

func (self *Builder) fanout(max int) int {
	if self.Fanout >= 2 && self.Fanout < max {
		return self.Fanout
	}
	return max
}

func (self *Builder) allocBID(internal bool) ndb.BID {
	self.nextBID += 4
	bid := ndb.BID(self.nextBID)
	if internal {
		bid |= 2
	}
	return bid
}

func (self *Builder) add(internal bool, data []byte, level, logical int) ndb.BID {
	if len(data) > ndb.MaxBlockDataSize {
		log.Panicf("block too large: %d", len(data))
	}
	b := &block{bid: self.allocBID(internal), data: data,
		level: level, logical: logical}
	self.blocks = append(self.blocks, b)
	self.byBID[b.bid] = b
	return b.bid
}

// AddBlock adds single external data block.
func (self *Builder) AddBlock(data []byte) ndb.BID {
	return self.add(false, data, 0, len(data))
}

// AddInternalBlock adds internal block with arbitrary content.
func (self *Builder) AddInternalBlock(data []byte) ndb.BID {
	return self.add(true, data, 0, 0)
}

// AddXBlock adds an internal data block referring to children; its
// level is one above the first child.
func (self *Builder) AddXBlock(children ...ndb.BID) ndb.BID {
	level := 1
	total := 0
	for i, bid := range children {
		c := self.byBID[bid]
		if c == nil {
			log.Panicf("unknown child %v", bid)
		}
		if i == 0 {
			level = c.level + 1
		}
		total += c.logical
	}
	b := make([]byte, 8+8*len(children))
	b[0] = ndb.BlockTypeXBlock
	b[1] = byte(level)
	binary.LittleEndian.PutUint16(b[2:], uint16(len(children)))
	binary.LittleEndian.PutUint32(b[4:], uint32(total))
	for i, bid := range children {
		binary.LittleEndian.PutUint64(b[8+8*i:], uint64(bid))
	}
	return self.add(true, b, level, total)
}

// AddDataBlocks stores the given blocks as one data tree, keeping
// the block boundaries.
func (self *Builder) AddDataBlocks(blocks [][]byte) ndb.BID {
	bids := make([]ndb.BID, len(blocks))
	for i, b := range blocks {
		bids[i] = self.AddBlock(b)
	}
	if len(bids) == 1 {
		return bids[0]
	}
	n := self.fanout(xEntryMax)
	for len(bids) > 1 {
		var parents []ndb.BID
		for start := 0; start < len(bids); start += n {
			end := util.IMin(start+n, len(bids))
			parents = append(parents, self.AddXBlock(bids[start:end]...))
		}
		bids = parents
	}
	return bids[0]
}

// AddData stores data as a data tree of ChunkSize blocks.
func (self *Builder) AddData(data []byte) ndb.BID {
	chunk := self.ChunkSize
	if chunk <= 0 || chunk > ndb.MaxBlockDataSize {
		chunk = ndb.MaxBlockDataSize
	}
	var blocks [][]byte
	for start := 0; start == 0 || start < len(data); start += chunk {
		end := util.IMin(start+chunk, len(data))
		blocks = append(blocks, data[start:end])
	}
	return self.AddDataBlocks(blocks)
}

func encodeSBlock(level, esize int, n int) []byte {
	b := make([]byte, 8+esize*n)
	b[0] = ndb.BlockTypeSBlock
	b[1] = byte(level)
	binary.LittleEndian.PutUint16(b[2:], uint16(n))
	return b
}

// AddSubnodes stores the entries as subnode tree; one or two
// levels are produced depending on Fanout.
func (self *Builder) AddSubnodes(entries []ndb.SubnodeEntry) ndb.BID {
	l := append([]ndb.SubnodeEntry{}, entries...)
	sort.Slice(l, func(i, j int) bool {
		return l[i].NID < l[j].NID
	})
	le := binary.LittleEndian
	n := self.fanout(slEntryMax)
	var firsts []ndb.NID
	var bids []ndb.BID
	for start := 0; start == 0 || start < len(l); start += n {
		end := util.IMin(start+n, len(l))
		chunk := l[start:end]
		b := encodeSBlock(0, 24, len(chunk))
		for i, e := range chunk {
			o := b[8+24*i:]
			le.PutUint64(o, uint64(e.NID))
			le.PutUint64(o[8:], uint64(e.DataBID))
			le.PutUint64(o[16:], uint64(e.SubnodeBID))
		}
		if len(chunk) > 0 {
			firsts = append(firsts, chunk[0].NID)
		}
		bids = append(bids, self.add(true, b, 0, 0))
	}
	if len(bids) == 1 {
		return bids[0]
	}
	if len(bids) > siEntryMax {
		log.Panicf("too many subnodes: %d", len(l))
	}
	b := encodeSBlock(1, 16, len(bids))
	for i, bid := range bids {
		o := b[8+16*i:]
		le.PutUint64(o, uint64(firsts[i]))
		le.PutUint64(o[8:], uint64(bid))
	}
	return self.add(true, b, 1, 0)
}

func (self *Builder) AddNode(e ndb.NodeEntry) {
	self.AddNodeWithKey(uint64(e.NID), e)
}

// AddNodeWithKey adds node whose 64-bit node b-tree key may differ
// from the NID (e.g. garbage in the upper 32 bits).
func (self *Builder) AddNodeWithKey(key uint64, e ndb.NodeEntry) {
	self.nodes = append(self.nodes, nodeEntry{key: key, NodeEntry: e})
}

// Hide omits the block from the block b-tree, while still writing
// its content.
func (self *Builder) Hide(bid ndb.BID) {
	self.hidden[bid] = true
}

// Image is the result of Build.
type Image struct {
	Data    []byte
	NBTRoot ndb.BREF
	BBTRoot ndb.BREF

	// Offsets of blocks by BID.
	Offsets map[ndb.BID]ndb.IB
}

type treeEntry struct {
	key uint64
	raw []byte
}

type imageWriter struct {
	*Builder
	img *Image
}

func (self *imageWriter) alloc(size, align int) int {
	ofs := util.AlignUp(len(self.img.Data), align)
	n := ofs + size
	if n > cap(self.img.Data) {
		nd := make([]byte, len(self.img.Data), 2*n)
		copy(nd, self.img.Data)
		self.img.Data = nd
	}
	self.img.Data = self.img.Data[:n]
	return ofs
}

func (self *imageWriter) writeBlock(b *block) {
	size := util.AlignUp(len(b.data)+ndb.BlockTrailerSize, ndb.BlockAlignment)
	ofs := self.alloc(size, ndb.BlockAlignment)
	buf := self.img.Data[ofs : ofs+size]
	copy(buf, b.data)
	t := buf[size-ndb.BlockTrailerSize:]
	le := binary.LittleEndian
	le.PutUint16(t, uint16(len(b.data)))
	le.PutUint16(t[2:], ndb.ComputeSig(ndb.IB(ofs), b.bid))
	le.PutUint32(t[4:], ndb.ComputeCRC(0, b.data))
	le.PutUint64(t[8:], uint64(b.bid))
	self.img.Offsets[b.bid] = ndb.IB(ofs)
}

func (self *imageWriter) writePage(ptype uint8, level, cbEnt, cEntMax int, entries []treeEntry) ndb.BREF {
	ofs := self.alloc(ndb.PageSize, ndb.PageSize)
	buf := self.img.Data[ofs : ofs+ndb.PageSize]
	for i, e := range entries {
		copy(buf[i*cbEnt:], e.raw)
	}
	buf[488] = byte(len(entries))
	buf[489] = byte(cEntMax)
	buf[490] = byte(cbEnt)
	buf[491] = byte(level)
	ref := ndb.BREF{BID: self.allocBID(false), IB: ndb.IB(ofs)}
	le := binary.LittleEndian
	t := buf[496:]
	t[0] = ptype
	t[1] = ptype
	le.PutUint16(t[2:], ndb.ComputeSig(ref.IB, ref.BID))
	le.PutUint32(t[4:], ndb.ComputeCRC(0, buf[:496]))
	le.PutUint64(t[8:], uint64(ref.BID))
	return ref
}

func (self *imageWriter) writeTree(ptype uint8, entries []treeEntry, leafSize, leafMax int) ndb.BREF {
	level := 0
	cbEnt, cEntMax := leafSize, leafMax
	for {
		n := self.fanout(cEntMax)
		var parents []treeEntry
		var ref ndb.BREF
		for start := 0; start == 0 || start < len(entries); start += n {
			end := util.IMin(start+n, len(entries))
			ref = self.writePage(ptype, level, cbEnt, cEntMax, entries[start:end])
			var key uint64
			if end > start {
				key = entries[start].key
			}
			raw := make([]byte, 24)
			binary.LittleEndian.PutUint64(raw, key)
			binary.LittleEndian.PutUint64(raw[8:], uint64(ref.BID))
			binary.LittleEndian.PutUint64(raw[16:], uint64(ref.IB))
			parents = append(parents, treeEntry{key: key, raw: raw})
		}
		if len(parents) == 1 {
			return ref
		}
		entries = parents
		level++
		cbEnt, cEntMax = 24, btEntryMax
	}
}

// Build lays out the container.
func (self *Builder) Build() *Image {
	img := &Image{Data: make([]byte, dataStartIB, 4*dataStartIB),
		Offsets: make(map[ndb.BID]ndb.IB)}
	w := &imageWriter{Builder: self, img: img}
	for _, b := range self.blocks {
		w.writeBlock(b)
	}
	le := binary.LittleEndian

	var bbt []treeEntry
	for _, b := range self.blocks {
		if self.hidden[b.bid] {
			continue
		}
		raw := make([]byte, 24)
		le.PutUint64(raw, uint64(b.bid))
		le.PutUint64(raw[8:], uint64(img.Offsets[b.bid]))
		le.PutUint16(raw[16:], uint16(len(b.data)))
		le.PutUint16(raw[18:], 2)
		bbt = append(bbt, treeEntry{key: uint64(b.bid.Key()), raw: raw})
	}
	sort.Slice(bbt, func(i, j int) bool { return bbt[i].key < bbt[j].key })

	var nbt []treeEntry
	for _, e := range self.nodes {
		raw := make([]byte, 32)
		le.PutUint64(raw, e.key)
		le.PutUint64(raw[8:], uint64(e.DataBID))
		le.PutUint64(raw[16:], uint64(e.SubnodeBID))
		le.PutUint32(raw[24:], uint32(e.ParentNID))
		nbt = append(nbt, treeEntry{key: e.key, raw: raw})
	}
	sort.Slice(nbt, func(i, j int) bool { return nbt[i].key < nbt[j].key })

	img.NBTRoot = w.writeTree(ndb.PageTypeNBT, nbt, 32, nbtLeafMax)
	img.BBTRoot = w.writeTree(ndb.PageTypeBBT, bbt, 24, bbtLeafMax)

	h := img.Data[:ndb.HeaderDiskSize]
	le.PutUint32(h, ndb.HeaderMagic)
	le.PutUint16(h[8:], ndb.HeaderMagicClient)
	le.PutUint16(h[10:], ndb.VersionUnicodeMin)
	le.PutUint16(h[12:], 19)
	h[14] = 1
	h[15] = 1
	le.PutUint64(h[32:], self.nextBID+4)
	le.PutUint64(h[184:], uint64(len(img.Data)))
	le.PutUint64(h[216:], uint64(img.NBTRoot.BID))
	le.PutUint64(h[224:], uint64(img.NBTRoot.IB))
	le.PutUint64(h[232:], uint64(img.BBTRoot.BID))
	le.PutUint64(h[240:], uint64(img.BBTRoot.IB))
	h[248] = 2
	h[512] = ndb.HeaderSentinel
	h[513] = ndb.CryptMethodNone
	le.PutUint64(h[516:], self.nextBID+8)
	img.UpdateHeaderCRC()
	return img
}

// UpdateHeaderCRC recomputes both header checksums, e.g. after
// the test has modified some header field.
func (self *Image) UpdateHeaderCRC() {
	le := binary.LittleEndian
	h := self.Data
	le.PutUint32(h[4:], ndb.ComputeCRC(0, h[8:8+471]))
	le.PutUint32(h[524:], ndb.ComputeCRC(0, h[8:8+516]))
}

func (self *Image) Backend() storage.Backend {
	return storage.NewInMemoryBackend(self.Data)
}

// Open is shorthand for opening the image with default limits.
func (self *Image) Open() (*ndb.Directory, error) {
	return ndb.Open(self.Backend(), ndb.Limits{})
}
