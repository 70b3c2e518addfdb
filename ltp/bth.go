/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 13:15:20 2019 mstenber
 * Last modified: Thu Mar 21 09:55:48 2019 mstenber
 * Edit time:     47 min
 *
 */

package ltp

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

const bthHeaderSize = 8

// BTH is a b-tree stored within a heap. Keys are 2 or 4 bytes.
type BTH struct {
	KeySize   int
	EntrySize int
	Levels    int
	Root      HID

	walker ndb.TreeWalker[uint32, bthRef, []byte]
	heap   *Heap
}

type bthRef struct {
	hid   HID
	level int
}

func bthCorruptf(format string, args ...interface{}) error {
	return ndb.Corruptf("heap b-tree", format, args...)
}

// OpenBTH decodes the BTH header at hid.
func OpenBTH(heap *Heap, hid HID, limits *ndb.Limits) (*BTH, error) {
	b, err := heap.Get(hid)
	if err != nil {
		return nil, err
	}
	if len(b) < bthHeaderSize || b[0] != ClientSigBTH {
		return nil, bthCorruptf("invalid header at %v", hid)
	}
	self := &BTH{KeySize: int(b[1]), EntrySize: int(b[2]),
		Levels: int(b[3]),
		Root:   HID(binary.LittleEndian.Uint32(b[4:])),
		heap:   heap}
	if self.KeySize != 2 && self.KeySize != 4 {
		return nil, bthCorruptf("unsupported key size %d", self.KeySize)
	}
	if self.EntrySize == 0 || self.EntrySize > 32 {
		return nil, bthCorruptf("invalid entry size %d", self.EntrySize)
	}
	self.walker = ndb.TreeWalker[uint32, bthRef, []byte]{
		Name:     "heap b-tree",
		Load:     self.load,
		MaxDepth: limits.MaxTreeDepth,
	}
	return self, nil
}

func (self *BTH) key(b []byte) uint32 {
	if self.KeySize == 2 {
		return uint32(binary.LittleEndian.Uint16(b))
	}
	return binary.LittleEndian.Uint32(b)
}

func (self *BTH) load(ref bthRef) (*ndb.TreePage[uint32, bthRef, []byte], error) {
	b, err := self.heap.Get(ref.hid)
	if err != nil {
		return nil, err
	}
	rsize := self.KeySize + self.EntrySize
	if ref.level > 0 {
		rsize = self.KeySize + 4
	}
	if len(b)%rsize != 0 {
		return nil, bthCorruptf("%v size %d not multiple of %d", ref.hid, len(b), rsize)
	}
	n := len(b) / rsize
	p := &ndb.TreePage[uint32, bthRef, []byte]{Level: ref.level,
		Keys: make([]uint32, n)}
	if ref.level > 0 {
		p.Children = make([]bthRef, n)
	} else {
		p.Values = make([][]byte, n)
	}
	for i := 0; i < n; i++ {
		r := b[i*rsize : (i+1)*rsize]
		p.Keys[i] = self.key(r)
		if ref.level > 0 {
			hid := HID(binary.LittleEndian.Uint32(r[self.KeySize:]))
			p.Children[i] = bthRef{hid: hid, level: ref.level - 1}
		} else {
			p.Values[i] = r[self.KeySize:]
		}
	}
	return p, nil
}

func (self *BTH) root() bthRef {
	return bthRef{hid: self.Root, level: self.Levels}
}

// Find looks up the data of a single key.
func (self *BTH) Find(key uint32) ([]byte, bool, error) {
	mlog.Printf2("ltp/bth", "Find %x", key)
	if self.Root == 0 {
		return nil, false, nil
	}
	return self.walker.Find(self.root(), key)
}

// Walk visits all records in key order.
func (self *BTH) Walk(visit func(key uint32, data []byte) error) error {
	if self.Root == 0 {
		return nil
	}
	return self.walker.Walk(self.root(), visit)
}
