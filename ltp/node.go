/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 15:20:31 2019 mstenber
 * Last modified: Thu Mar 21 10:02:17 2019 mstenber
 * Edit time:     25 min
 *
 */

package ltp

import (
	"github.com/fingon/go-pstndb/ndb"
)

// heapNode is a node whose data is a heap; values are either within
// the heap or in the node's subnodes.
type heapNode struct {
	dir      *ndb.Directory
	heap     *Heap
	subnodes ndb.BID
}

func openHeapNode(dir *ndb.Directory, dataBID, subBID ndb.BID, clientSig uint8) (heapNode, error) {
	h, err := ReadHeap(dir, dataBID, clientSig)
	if err != nil {
		return heapNode{}, err
	}
	return heapNode{dir: dir, heap: h, subnodes: subBID}, nil
}

// resolve returns the data HNID refers to.
func (self *heapNode) resolve(hnid HNID) ([]byte, error) {
	if hnid == 0 {
		return []byte{}, nil
	}
	if hnid.IsHID() {
		return self.heap.Get(HID(hnid))
	}
	nid := ndb.NID(hnid)
	e, found, err := self.dir.FindSubnode(self.subnodes, nid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ndb.Corruptf("value", "subnode %v missing", nid)
	}
	return self.dir.ReadData(e.DataBID)
}

// value produces PropertyValue of type t; values of fixed types up
// to inlineMax bytes are within inline, and others referred to by
// hnid.
func (self *heapNode) value(t PropertyType, inline []byte, hnid HNID, inlineMax int) (PropertyValue, error) {
	size, fixed := FixedSize(t)
	if fixed && size <= inlineMax {
		if len(inline) < size {
			return PropertyValue{}, ndb.Corruptf("value", "inline %d bytes < %d", len(inline), size)
		}
		return PropertyValue{Type: t, Data: inline[:size]}, nil
	}
	b, err := self.resolve(hnid)
	if err != nil {
		return PropertyValue{}, err
	}
	if fixed && len(b) != size {
		return PropertyValue{}, ndb.Corruptf("value", "type %x size %d != %d", t, len(b), size)
	}
	return PropertyValue{Type: t, Data: b}, nil
}
