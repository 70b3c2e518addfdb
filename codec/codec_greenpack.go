/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 09:20:31 2019 mstenber
 * Last modified: Mon Mar 25 11:02:19 2019 mstenber
 * Edit time:     23 min
 *
 */

package codec

import (
	"github.com/glycerine/greenpack/msgp"
	"github.com/pkg/errors"
)

// Envelopes are encoded as msgpack arrays in field order.

type EncryptedData struct {
	// nonce used for AES GCM
	Nonce []byte

	// EncryptedData is AES GCM encrypted CompressedData
	EncryptedData []byte
}

type CompressionType byte

const (
	CompressionType_UNSET CompressionType = iota

	// The data has not been compressed.
	CompressionType_PLAIN

	// The data is compressed with Snappy.
	CompressionType_SNAPPY
)

type CompressedData struct {
	// CompressionType describes how the data has been compressed.
	CompressionType CompressionType

	// RawData is the raw data of the client (whatever it is)
	RawData []byte
}

// greenpack exposes its byte readers as NilBitsStack methods; a nil
// receiver gives the plain (stateless) decoding.
var nbs *msgp.NilBitsStack

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

func (self *EncryptedData) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendBytes(b, self.Nonce)
	b = msgp.AppendBytes(b, self.EncryptedData)
	return b, nil
}

func (self *EncryptedData) UnmarshalMsg(b []byte) (o []byte, err error) {
	o, err = readArrayHeader(b, 2)
	if err != nil {
		return
	}
	self.Nonce, o, err = nbs.ReadBytesBytes(o, nil)
	if err != nil {
		return
	}
	self.EncryptedData, o, err = nbs.ReadBytesBytes(o, nil)
	return
}

func (self *CompressedData) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendUint8(b, uint8(self.CompressionType))
	b = msgp.AppendBytes(b, self.RawData)
	return b, nil
}

func (self *CompressedData) UnmarshalMsg(b []byte) (o []byte, err error) {
	o, err = readArrayHeader(b, 2)
	if err != nil {
		return
	}
	var ct uint8
	ct, o, err = nbs.ReadUint8Bytes(o)
	if err != nil {
		return
	}
	self.CompressionType = CompressionType(ct)
	self.RawData, o, err = nbs.ReadBytesBytes(o, nil)
	return
}
