/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 12:10:44 2019 mstenber
 * Last modified: Mon Mar 25 15:40:12 2019 mstenber
 * Edit time:     52 min
 *
 */

package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/glycerine/greenpack/msgp"
	"github.com/pkg/errors"
)

// greenpack exposes its byte readers as NilBitsStack methods; a nil
// receiver gives the plain (stateless) decoding.
var nbs *msgp.NilBitsStack

type ObjectKind uint8

const (
	ObjectKindUnset ObjectKind = iota
	ObjectKindStore
	ObjectKindFolder
	ObjectKindMessage
	ObjectKindAttachment
)

func (self ObjectKind) String() string {
	switch self {
	case ObjectKindStore:
		return "store"
	case ObjectKindFolder:
		return "folder"
	case ObjectKindMessage:
		return "message"
	case ObjectKindAttachment:
		return "attachment"
	}
	return fmt.Sprintf("kind%d", uint8(self))
}

// ObjectKey identifies exported object. Top-level objects have zero
// Parent; attachments are keyed by their message.
type ObjectKey struct {
	Parent, NID uint32
}

const objectKeySize = 8

func (self ObjectKey) Bytes() []byte {
	b := make([]byte, objectKeySize)
	binary.BigEndian.PutUint32(b, self.Parent)
	binary.BigEndian.PutUint32(b[4:], self.NID)
	return b
}

func ObjectKeyFromBytes(b []byte) (ObjectKey, error) {
	if len(b) != objectKeySize {
		return ObjectKey{}, errors.Errorf("invalid object key length %d", len(b))
	}
	return ObjectKey{Parent: binary.BigEndian.Uint32(b),
		NID: binary.BigEndian.Uint32(b[4:])}, nil
}

func (self ObjectKey) String() string {
	if self.Parent == 0 {
		return fmt.Sprintf("%x", self.NID)
	}
	return fmt.Sprintf("%x/%x", self.Parent, self.NID)
}

// PropertyRecord is single exported property. Large values are
// stored in the content bucket and referred to by ContentID.
type PropertyRecord struct {
	Tag       uint32
	Data      []byte
	ContentID []byte
}

// RowRecord is single exported table row (e.g. recipient).
type RowRecord struct {
	ID         uint32
	Properties []PropertyRecord
}

type ObjectRecord struct {
	Kind       ObjectKind
	Key        ObjectKey
	Properties []PropertyRecord
	Recipients []RowRecord

	// Children are the NIDs of subfolders and messages of a
	// folder, or attachments of a message.
	Children []uint32
}

// Records are encoded as msgpack arrays in field order.

func readArrayHeader(b []byte, expected uint32) ([]byte, error) {
	sz, b, err := nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	if sz != expected {
		return nil, errors.Errorf("invalid field count %d != %d", sz, expected)
	}
	return b, nil
}

func (self *PropertyRecord) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendUint32(b, self.Tag)
	b = msgp.AppendBytes(b, self.Data)
	b = msgp.AppendBytes(b, self.ContentID)
	return b, nil
}

func (self *PropertyRecord) UnmarshalMsg(b []byte) (o []byte, err error) {
	o, err = readArrayHeader(b, 3)
	if err != nil {
		return
	}
	self.Tag, o, err = nbs.ReadUint32Bytes(o)
	if err != nil {
		return
	}
	self.Data, o, err = nbs.ReadBytesBytes(o, nil)
	if err != nil {
		return
	}
	self.ContentID, o, err = nbs.ReadBytesBytes(o, nil)
	return
}

func marshalProperties(b []byte, l []PropertyRecord) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, uint32(len(l)))
	for i := range l {
		var err error
		b, err = l[i].MarshalMsg(b)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func unmarshalProperties(b []byte) (l []PropertyRecord, o []byte, err error) {
	var sz uint32
	sz, o, err = nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return
	}
	if sz > uint32(len(o)) {
		return nil, nil, errors.Errorf("invalid property count %d", sz)
	}
	l = make([]PropertyRecord, sz)
	for i := range l {
		o, err = l[i].UnmarshalMsg(o)
		if err != nil {
			return
		}
	}
	return
}

func (self *RowRecord) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendUint32(b, self.ID)
	return marshalProperties(b, self.Properties)
}

func (self *RowRecord) UnmarshalMsg(b []byte) (o []byte, err error) {
	o, err = readArrayHeader(b, 2)
	if err != nil {
		return
	}
	self.ID, o, err = nbs.ReadUint32Bytes(o)
	if err != nil {
		return
	}
	self.Properties, o, err = unmarshalProperties(o)
	return
}

func (self *ObjectRecord) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.AppendArrayHeader(b, 5)
	o = msgp.AppendUint8(o, uint8(self.Kind))
	o = msgp.AppendBytes(o, self.Key.Bytes())
	o, err = marshalProperties(o, self.Properties)
	if err != nil {
		return
	}
	o = msgp.AppendArrayHeader(o, uint32(len(self.Recipients)))
	for i := range self.Recipients {
		o, err = self.Recipients[i].MarshalMsg(o)
		if err != nil {
			return
		}
	}
	o = msgp.AppendArrayHeader(o, uint32(len(self.Children)))
	for _, nid := range self.Children {
		o = msgp.AppendUint32(o, nid)
	}
	return
}

func (self *ObjectRecord) UnmarshalMsg(b []byte) (o []byte, err error) {
	o, err = readArrayHeader(b, 5)
	if err != nil {
		return
	}
	var kind uint8
	kind, o, err = nbs.ReadUint8Bytes(o)
	if err != nil {
		return
	}
	self.Kind = ObjectKind(kind)
	var kb []byte
	kb, o, err = nbs.ReadBytesBytes(o, nil)
	if err != nil {
		return
	}
	self.Key, err = ObjectKeyFromBytes(kb)
	if err != nil {
		return
	}
	self.Properties, o, err = unmarshalProperties(o)
	if err != nil {
		return
	}
	var sz uint32
	sz, o, err = nbs.ReadArrayHeaderBytes(o)
	if err != nil {
		return
	}
	if sz > uint32(len(o)) {
		return nil, errors.Errorf("invalid recipient count %d", sz)
	}
	self.Recipients = make([]RowRecord, sz)
	for i := range self.Recipients {
		o, err = self.Recipients[i].UnmarshalMsg(o)
		if err != nil {
			return
		}
	}
	sz, o, err = nbs.ReadArrayHeaderBytes(o)
	if err != nil {
		return
	}
	if sz > uint32(len(o)) {
		return nil, errors.Errorf("invalid child count %d", sz)
	}
	self.Children = make([]uint32, sz)
	for i := range self.Children {
		self.Children[i], o, err = nbs.ReadUint32Bytes(o)
		if err != nil {
			return
		}
	}
	return
}
