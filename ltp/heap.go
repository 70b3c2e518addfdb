/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 11:04:37 2019 mstenber
 * Last modified: Thu Mar 21 09:40:22 2019 mstenber
 * Edit time:     52 min
 *
 */

package ltp

import (
	"encoding/binary"
	"fmt"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

const (
	HeapSignature = 0xEC

	ClientSigTC  = 0x7C
	ClientSigBTH = 0xB5
	ClientSigPC  = 0xBC

	HeapHeaderSize = 12

	// MaxHeapAllocation is the largest allocation; bigger values
	// are stored in subnodes.
	MaxHeapAllocation = 3580
)

// HID addresses an allocation within a heap: 11-bit 1-based index
// and 16-bit block index. The lowest 5 bits are always zero.
type HID uint32

func MakeHID(block, index int) HID {
	return HID(block<<16 | (index&0x7FF)<<5)
}

func (self HID) BlockIndex() int {
	return int(self >> 16)
}

func (self HID) Index() int {
	return int(self>>5) & 0x7FF
}

func (self HID) String() string {
	return fmt.Sprintf("hid{%d/%d}", self.BlockIndex(), self.Index())
}

// HNID is either a HID or a subnode NID.
type HNID uint32

func (self HNID) IsHID() bool {
	return ndb.NIDType(self&0x1F) == ndb.NIDTypeHID
}

type heapPage struct {
	data   []byte
	allocs []int
}

// Heap is decoded heap-on-node.
type Heap struct {
	ClientSig uint8
	UserRoot  HID

	pages []heapPage
}

func heapCorruptf(format string, args ...interface{}) error {
	return ndb.Corruptf("heap", format, args...)
}

func decodePageMap(i int, b []byte) (heapPage, error) {
	p := heapPage{data: b}
	if len(b) < 2 {
		return p, heapCorruptf("block %d too short", i)
	}
	le := binary.LittleEndian
	ibHnpm := int(le.Uint16(b))
	if ibHnpm+4 > len(b) {
		return p, heapCorruptf("block %d page map at %d", i, ibHnpm)
	}
	cAlloc := int(le.Uint16(b[ibHnpm:]))
	if ibHnpm+4+2*(cAlloc+1) > len(b) {
		return p, heapCorruptf("block %d %d allocations do not fit", i, cAlloc)
	}
	p.allocs = make([]int, cAlloc+1)
	for j := range p.allocs {
		ofs := int(le.Uint16(b[ibHnpm+4+2*j:]))
		if ofs > ibHnpm || (j > 0 && ofs < p.allocs[j-1]) {
			return p, heapCorruptf("block %d allocation %d offset %d", i, j, ofs)
		}
		p.allocs[j] = ofs
	}
	return p, nil
}

// NewHeap decodes the heap from the node's data blocks.
func NewHeap(blocks [][]byte) (*Heap, error) {
	if len(blocks) == 0 || len(blocks[0]) < HeapHeaderSize {
		return nil, heapCorruptf("missing header")
	}
	b := blocks[0]
	if b[2] != HeapSignature {
		return nil, heapCorruptf("invalid signature %x", b[2])
	}
	self := &Heap{ClientSig: b[3],
		UserRoot: HID(binary.LittleEndian.Uint32(b[4:]))}
	self.pages = make([]heapPage, len(blocks))
	for i, block := range blocks {
		p, err := decodePageMap(i, block)
		if err != nil {
			return nil, err
		}
		self.pages[i] = p
	}
	mlog.Printf2("ltp/heap", "NewHeap sig:%x root:%v %d pages",
		self.ClientSig, self.UserRoot, len(self.pages))
	return self, nil
}

// ReadHeap reads and decodes the heap of a node; the client
// signature must match.
func ReadHeap(dir *ndb.Directory, bid ndb.BID, clientSig uint8) (*Heap, error) {
	blocks, err := dir.ReadDataBlocks(bid)
	if err != nil {
		return nil, err
	}
	h, err := NewHeap(blocks)
	if err != nil {
		return nil, err
	}
	if h.ClientSig != clientSig {
		return nil, heapCorruptf("client signature %x != %x", h.ClientSig, clientSig)
	}
	return h, nil
}

// Get returns the content of an allocation.
func (self *Heap) Get(hid HID) ([]byte, error) {
	if hid&0x1F != 0 {
		return nil, heapCorruptf("%x is not a HID", uint32(hid))
	}
	bi := hid.BlockIndex()
	if bi >= len(self.pages) {
		return nil, heapCorruptf("%v block out of range", hid)
	}
	p := &self.pages[bi]
	i := hid.Index()
	if i == 0 || i >= len(p.allocs) {
		return nil, heapCorruptf("%v index out of range", hid)
	}
	return p.data[p.allocs[i-1]:p.allocs[i]], nil
}

func (self *Heap) PageCount() int {
	return len(self.pages)
}
