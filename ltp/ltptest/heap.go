/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 15:02:31 2019 mstenber
 * Last modified: Thu Mar 21 13:05:12 2019 mstenber
 * Edit time:     63 min
 *
 */

// ltptest package encodes heaps, property and table contexts and
// name-to-id maps for tests.
package ltptest

import (
	"encoding/binary"
	"log"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/util"
)

// Heap assembles heap-on-node blocks.
type Heap struct {
	ClientSig uint8
	UserRoot  ltp.HID

	// PageSize bounds the block size; 0 means the format maximum.
	PageSize int

	pages [][][]byte
}

func NewHeap(clientSig uint8) *Heap {
	return &Heap{ClientSig: clientSig}
}

func pageHeaderSize(i int) int {
	if i == 0 {
		return ltp.HeapHeaderSize
	}
	if i%128 == 8 {
		// bitmap page header
		return 66
	}
	return 2
}

func pageSize(i int, allocs [][]byte) int {
	n := pageHeaderSize(i)
	for _, a := range allocs {
		n += len(a)
	}
	return n + 4 + 2*(len(allocs)+1)
}

func (self *Heap) maxPage() int {
	if self.PageSize > 0 && self.PageSize < ndb.MaxBlockDataSize {
		return self.PageSize
	}
	return ndb.MaxBlockDataSize
}

// Allocate stores data in the heap and returns its HID.
func (self *Heap) Allocate(data []byte) ltp.HID {
	if len(data) > ltp.MaxHeapAllocation {
		log.Panicf("allocation too large: %d", len(data))
	}
	i := len(self.pages) - 1
	if i < 0 || pageSize(i, append(self.pages[i], data)) > self.maxPage() ||
		len(self.pages[i]) >= 0x7FF {
		self.pages = append(self.pages, nil)
		i++
	}
	self.pages[i] = append(self.pages[i], data)
	return ltp.MakeHID(i, len(self.pages[i]))
}

// Blocks returns the heap content, one byte slice per block.
func (self *Heap) Blocks() [][]byte {
	if len(self.pages) == 0 {
		self.pages = append(self.pages, nil)
	}
	le := binary.LittleEndian
	blocks := make([][]byte, len(self.pages))
	for i, allocs := range self.pages {
		b := make([]byte, pageSize(i, allocs))
		ofs := pageHeaderSize(i)
		offsets := []int{ofs}
		for _, a := range allocs {
			copy(b[ofs:], a)
			ofs += len(a)
			offsets = append(offsets, ofs)
		}
		le.PutUint16(b, uint16(ofs))
		if i == 0 {
			b[2] = ltp.HeapSignature
			b[3] = self.ClientSig
			le.PutUint32(b[4:], uint32(self.UserRoot))
		}
		le.PutUint16(b[ofs:], uint16(len(allocs)))
		for j, o := range offsets {
			le.PutUint16(b[ofs+4+2*j:], uint16(o))
		}
		blocks[i] = b
	}
	return blocks
}

// Store writes the heap into the builder as data tree.
func (self *Heap) Store(b *ndbtest.Builder) ndb.BID {
	return b.AddDataBlocks(self.Blocks())
}

// Record is single BTH record.
type Record struct {
	Key  uint32
	Data []byte
}

func putKey(b []byte, size int, key uint32) {
	if size == 2 {
		binary.LittleEndian.PutUint16(b, uint16(key))
	} else {
		binary.LittleEndian.PutUint32(b, key)
	}
}

// AddBTH stores records (in ascending key order) as b-tree on heap;
// fanout bounds the records per heap allocation (0 = as many as
// fit). The BTH header HID is returned.
func (self *Heap) AddBTH(keySize, entrySize int, records []Record, fanout int) ltp.HID {
	type ent struct {
		key uint32
		hid ltp.HID
	}
	maxFit := ltp.MaxHeapAllocation / (keySize + entrySize)
	if fanout < 2 || fanout > maxFit {
		fanout = maxFit
	}
	var level []ent
	for start := 0; start < len(records); start += fanout {
		end := util.IMin(start+fanout, len(records))
		rsize := keySize + entrySize
		b := make([]byte, rsize*(end-start))
		for i, r := range records[start:end] {
			putKey(b[i*rsize:], keySize, r.Key)
			copy(b[i*rsize+keySize:], r.Data)
		}
		level = append(level, ent{records[start].Key, self.Allocate(b)})
	}
	levels := 0
	for len(level) > 1 {
		levels++
		var parents []ent
		for start := 0; start < len(level); start += fanout {
			end := util.IMin(start+fanout, len(level))
			rsize := keySize + 4
			b := make([]byte, rsize*(end-start))
			for i, e := range level[start:end] {
				putKey(b[i*rsize:], keySize, e.key)
				binary.LittleEndian.PutUint32(b[i*rsize+keySize:], uint32(e.hid))
			}
			parents = append(parents, ent{level[start].key, self.Allocate(b)})
		}
		level = parents
	}
	h := make([]byte, 8)
	h[0] = ltp.ClientSigBTH
	h[1] = byte(keySize)
	h[2] = byte(entrySize)
	h[3] = byte(levels)
	if len(level) > 0 {
		binary.LittleEndian.PutUint32(h[4:], uint32(level[0].hid))
	}
	return self.Allocate(h)
}
