/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 16:02:55 2019 mstenber
 * Last modified: Thu Mar 21 10:20:40 2019 mstenber
 * Edit time:     41 min
 *
 */

package ltp

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

const (
	pcKeySize   = 2
	pcEntrySize = 6
	pcInlineMax = 4
)

// PropertyContext is a node holding a set of properties keyed by
// property id.
type PropertyContext struct {
	heapNode
	bth *BTH
}

// OpenPropertyContext decodes the heap and the property b-tree of
// the node. Subnodes are not touched until a value needs them.
func OpenPropertyContext(dir *ndb.Directory, dataBID, subBID ndb.BID) (*PropertyContext, error) {
	mlog.Printf2("ltp/pc", "OpenPropertyContext %v %v", dataBID, subBID)
	hn, err := openHeapNode(dir, dataBID, subBID, ClientSigPC)
	if err != nil {
		return nil, err
	}
	bth, err := OpenBTH(hn.heap, hn.heap.UserRoot, &dir.Limits)
	if err != nil {
		return nil, err
	}
	if bth.KeySize != pcKeySize || bth.EntrySize != pcEntrySize {
		return nil, ndb.Corruptf("property context", "record size %d/%d",
			bth.KeySize, bth.EntrySize)
	}
	return &PropertyContext{heapNode: hn, bth: bth}, nil
}

func (self *PropertyContext) decode(data []byte) (PropertyType, HNID, []byte) {
	return PropertyType(binary.LittleEndian.Uint16(data)),
		HNID(binary.LittleEndian.Uint32(data[2:])), data[2:]
}

// Get returns the property value. If the id is not present, or it
// is stored with different type than tag requests, found is false.
func (self *PropertyContext) Get(tag PropertyTag) (v PropertyValue, found bool, err error) {
	mlog.Printf2("ltp/pc", "Get %v", tag)
	data, found, err := self.bth.Find(uint32(tag.ID))
	if err != nil || !found {
		return
	}
	t, hnid, inline := self.decode(data)
	if !tag.matches(t) {
		mlog.Printf2("ltp/pc", " stored type %x", t)
		found = false
		return
	}
	v, err = self.value(t, inline, hnid, pcInlineMax)
	found = err == nil
	return
}

// Tags returns the tags of all properties in id order.
func (self *PropertyContext) Tags() ([]PropertyTag, error) {
	var l []PropertyTag
	err := self.bth.Walk(func(key uint32, data []byte) error {
		t, _, _ := self.decode(data)
		l = append(l, PropertyTag{ID: PropertyID(key), Type: t})
		return nil
	})
	return l, err
}

// All returns all properties with their values in id order.
func (self *PropertyContext) All() ([]Property, error) {
	var l []Property
	err := self.bth.Walk(func(key uint32, data []byte) error {
		t, hnid, inline := self.decode(data)
		v, err := self.value(t, inline, hnid, pcInlineMax)
		if err != nil {
			return err
		}
		l = append(l, Property{Tag: PropertyTag{ID: PropertyID(key), Type: t},
			Value: v})
		return nil
	})
	return l, err
}

// ReadProperty is shorthand for reading single property of a node.
func ReadProperty(dir *ndb.Directory, dataBID, subBID ndb.BID, tag PropertyTag) (PropertyValue, bool, error) {
	pc, err := OpenPropertyContext(dir, dataBID, subBID)
	if err != nil {
		return PropertyValue{}, false, err
	}
	return pc.Get(tag)
}
