/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Sat Mar 16 09:02:11 2019 mstenber
 * Last modified: Wed Mar 20 10:48:30 2019 mstenber
 * Edit time:     77 min
 *
 */

package ndb

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/util"
)

const (
	BlockTrailerSize = 16
	BlockAlignment   = 64
	MaxBlockSize     = 8192
	MaxBlockDataSize = MaxBlockSize - BlockTrailerSize

	BlockTypeXBlock = 0x01
	BlockTypeSBlock = 0x02

	xblockHeaderSize = 8
	bidSize          = 8
)

// readBlock reads single block, validates its trailer and returns
// the raw data (without padding and trailer).
func (self *Directory) readBlock(bid BID) ([]byte, error) {
	e, ok := self.Block(bid)
	if !ok {
		return nil, Corruptf("block", "%v not in block b-tree", bid)
	}
	if int(e.Size) > MaxBlockDataSize {
		return nil, Corruptf("block", "%v size %d too large", bid, e.Size)
	}
	size := util.AlignUp(int(e.Size)+BlockTrailerSize, BlockAlignment)
	b, err := self.backend.ReadData(uint64(e.BREF.IB), size)
	if err != nil {
		return nil, Corruptf("block", "unable to read %v: %v", bid, err)
	}
	le := binary.LittleEndian
	t := b[size-BlockTrailerSize:]
	cb := le.Uint16(t)
	sig := le.Uint16(t[2:])
	crc := le.Uint32(t[4:])
	tbid := BID(le.Uint64(t[8:]))
	if cb != e.Size {
		return nil, Corruptf("block", "%v trailer size %d != %d", bid, cb, e.Size)
	}
	if tbid.Key() != bid.Key() {
		return nil, Corruptf("block", "%v trailer has %v", bid, tbid)
	}
	data := b[:cb]
	if ecrc := ComputeCRC(0, data); ecrc != crc {
		return nil, Corruptf("block", "%v crc %x != %x", bid, crc, ecrc)
	}
	if esig := ComputeSig(e.BREF.IB, tbid); esig != sig {
		return nil, Corruptf("block", "%v signature %x != %x", bid, sig, esig)
	}
	return data, nil
}

type dataTreeReader struct {
	dir    *Directory
	blocks [][]byte
	total  int
}

// collect appends the external blocks under bid. level is the
// expected level of bid (0 = external block), or -1 if unknown.
func (self *dataTreeReader) collect(bid BID, level int) (int, error) {
	b, err := self.dir.readBlock(bid)
	if err != nil {
		return 0, err
	}
	if !bid.IsInternal() {
		if level > 0 {
			return 0, Corruptf("data tree", "external %v at level %d", bid, level)
		}
		self.total += len(b)
		if self.total > self.dir.Limits.MaxDataSize {
			return 0, Corruptf("data tree", "size exceeds %d", self.dir.Limits.MaxDataSize)
		}
		self.blocks = append(self.blocks, b)
		return len(b), nil
	}
	if len(b) < xblockHeaderSize {
		return 0, Corruptf("data tree", "%v too short", bid)
	}
	if b[0] != BlockTypeXBlock {
		return 0, Corruptf("data tree", "%v type %x", bid, b[0])
	}
	blevel := int(b[1])
	if blevel == 0 || blevel > self.dir.Limits.MaxDataTreeDepth {
		return 0, Corruptf("data tree", "%v invalid level %d", bid, blevel)
	}
	if level >= 0 && blevel != level {
		return 0, Corruptf("data tree", "%v level %d != %d", bid, blevel, level)
	}
	le := binary.LittleEndian
	cEnt := int(le.Uint16(b[2:]))
	lcbTotal := int(le.Uint32(b[4:]))
	if xblockHeaderSize+cEnt*bidSize > len(b) {
		return 0, Corruptf("data tree", "%v %d entries do not fit", bid, cEnt)
	}
	if lcbTotal > self.dir.Limits.MaxDataSize {
		return 0, Corruptf("data tree", "%v total %d exceeds %d", bid, lcbTotal, self.dir.Limits.MaxDataSize)
	}
	got := 0
	for i := 0; i < cEnt; i++ {
		child := BID(le.Uint64(b[xblockHeaderSize+i*bidSize:]))
		n, err := self.collect(child, blevel-1)
		if err != nil {
			return 0, err
		}
		got += n
	}
	if got != lcbTotal {
		return 0, Corruptf("data tree", "%v total %d != %d", bid, got, lcbTotal)
	}
	return got, nil
}

// ReadDataBlocks resolves the data tree rooted at bid, and returns
// the external blocks' contents in order. Heap-based structures
// need the block boundaries.
func (self *Directory) ReadDataBlocks(bid BID) ([][]byte, error) {
	mlog.Printf2("ndb/block", "ReadDataBlocks %v", bid)
	r := dataTreeReader{dir: self}
	_, err := r.collect(bid, -1)
	if err != nil {
		return nil, err
	}
	return r.blocks, nil
}

// ReadData resolves the data tree rooted at bid into a single
// contiguous byte slice.
func (self *Directory) ReadData(bid BID) ([]byte, error) {
	blocks, err := self.ReadDataBlocks(bid)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 1 {
		return blocks[0], nil
	}
	return util.ConcatBytes(blocks...), nil
}
