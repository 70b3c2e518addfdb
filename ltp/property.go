/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 09:02:44 2019 mstenber
 * Last modified: Thu Mar 21 10:15:03 2019 mstenber
 * Edit time:     70 min
 *
 */

// ltp package decodes the structures on top of node data: the heap
// on node, the b-tree on heap, property and table contexts, and the
// named property map.
package ltp

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/fingon/go-pstndb/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type PropertyID uint16

type PropertyType uint16

const (
	PtypUnspecified     PropertyType = 0x0000
	PtypNull            PropertyType = 0x0001
	PtypInteger16       PropertyType = 0x0002
	PtypInteger32       PropertyType = 0x0003
	PtypFloating32      PropertyType = 0x0004
	PtypFloating64      PropertyType = 0x0005
	PtypCurrency        PropertyType = 0x0006
	PtypFloatingTime    PropertyType = 0x0007
	PtypErrorCode       PropertyType = 0x000A
	PtypBoolean         PropertyType = 0x000B
	PtypObject          PropertyType = 0x000D
	PtypInteger64       PropertyType = 0x0014
	PtypString8         PropertyType = 0x001E
	PtypString          PropertyType = 0x001F
	PtypTime            PropertyType = 0x0040
	PtypGuid            PropertyType = 0x0048
	PtypServerId        PropertyType = 0x00FB
	PtypRestriction     PropertyType = 0x00FD
	PtypRuleAction      PropertyType = 0x00FE
	PtypBinary          PropertyType = 0x0102
	PtypMultipleFlag    PropertyType = 0x1000
	PtypMultipleInt32   PropertyType = PtypMultipleFlag | PtypInteger32
	PtypMultipleString  PropertyType = PtypMultipleFlag | PtypString
	PtypMultipleString8 PropertyType = PtypMultipleFlag | PtypString8
	PtypMultipleBinary  PropertyType = PtypMultipleFlag | PtypBinary
)

var fixedSizes = map[PropertyType]int{
	PtypInteger16:    2,
	PtypInteger32:    4,
	PtypFloating32:   4,
	PtypFloating64:   8,
	PtypCurrency:     8,
	PtypFloatingTime: 8,
	PtypErrorCode:    4,
	PtypBoolean:      1,
	PtypInteger64:    8,
	PtypTime:         8,
	PtypGuid:         16,
}

// FixedSize returns the size of fixed-size property types.
func FixedSize(t PropertyType) (int, bool) {
	n, ok := fixedSizes[t]
	return n, ok
}

func (self PropertyType) IsMultiple() bool {
	return self&PtypMultipleFlag != 0
}

// PropertyTag is the (id, type) pair; type PtypUnspecified matches
// any stored type in lookups.
type PropertyTag struct {
	ID   PropertyID
	Type PropertyType
}

// TagFromUint32 decodes the 32-bit form (id in high 16 bits).
func TagFromUint32(v uint32) PropertyTag {
	return PropertyTag{ID: PropertyID(v >> 16), Type: PropertyType(v)}
}

func (self PropertyTag) Uint32() uint32 {
	return uint32(self.ID)<<16 | uint32(self.Type)
}

func (self PropertyTag) String() string {
	return fmt.Sprintf("%04x%04x", uint16(self.ID), uint16(self.Type))
}

func (self PropertyTag) matches(t PropertyType) bool {
	return self.Type == PtypUnspecified || self.Type == t
}

// NumericalPropertyTag identifies a named property by numerical id
// within a property set.
type NumericalPropertyTag struct {
	Set  uuid.UUID
	ID   uint32
	Type PropertyType
}

// StringPropertyTag identifies a named property by name within a
// property set.
type StringPropertyTag struct {
	Set  uuid.UUID
	Name string
	Type PropertyType
}

// PropertyValue is the raw value of a property together with its
// stored type. Accessors interpret it.
type PropertyValue struct {
	Type PropertyType
	Data []byte
}

// Property is a tag with its value.
type Property struct {
	Tag   PropertyTag
	Value PropertyValue
}

func (self PropertyValue) fixed(t PropertyType) ([]byte, error) {
	if self.Type != t {
		return nil, errors.Errorf("property type %x is not %x", self.Type, t)
	}
	n, _ := FixedSize(t)
	if len(self.Data) != n {
		return nil, errors.Errorf("property size %d is not %d", len(self.Data), n)
	}
	return self.Data, nil
}

func (self PropertyValue) Int16() (int16, error) {
	b, err := self.fixed(PtypInteger16)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (self PropertyValue) Int32() (int32, error) {
	b, err := self.fixed(self.Type)
	if err != nil {
		return 0, err
	}
	switch self.Type {
	case PtypInteger32, PtypErrorCode:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case PtypInteger16:
		return int32(int16(binary.LittleEndian.Uint16(b))), nil
	}
	return 0, errors.Errorf("property type %x is not integer", self.Type)
}

func (self PropertyValue) Int64() (int64, error) {
	switch self.Type {
	case PtypInteger64, PtypCurrency:
		b, err := self.fixed(self.Type)
		if err != nil {
			return 0, err
		}
		return int64(binary.LittleEndian.Uint64(b)), nil
	}
	v, err := self.Int32()
	return int64(v), err
}

func (self PropertyValue) Float64() (float64, error) {
	switch self.Type {
	case PtypFloating32:
		b, err := self.fixed(self.Type)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case PtypFloating64, PtypFloatingTime:
		b, err := self.fixed(self.Type)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
	return 0, errors.Errorf("property type %x is not floating point", self.Type)
}

func (self PropertyValue) Bool() (bool, error) {
	b, err := self.fixed(PtypBoolean)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// 100ns intervals between 1601-01-01 and 1970-01-01
const filetimeUnixOffset = 116444736000000000

func FiletimeToTime(ft uint64) time.Time {
	v := int64(ft - filetimeUnixOffset)
	return time.Unix(v/1e7, (v%1e7)*100).UTC()
}

func TimeToFiletime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + filetimeUnixOffset
}

func (self PropertyValue) Time() (time.Time, error) {
	b, err := self.fixed(PtypTime)
	if err != nil {
		return time.Time{}, err
	}
	return FiletimeToTime(binary.LittleEndian.Uint64(b)), nil
}

func (self PropertyValue) GUID() (uuid.UUID, error) {
	b, err := self.fixed(PtypGuid)
	if err != nil {
		return uuid.Nil, err
	}
	return GUIDFromBytes(b), nil
}

// String decodes both the UTF-16LE and the 8-bit string types. The
// 8-bit strings are assumed to be ASCII compatible.
func (self PropertyValue) String() (string, error) {
	switch self.Type {
	case PtypString:
		if len(self.Data)%2 != 0 {
			return "", errors.Errorf("odd UTF-16 string length %d", len(self.Data))
		}
		return util.UTF16LEString(self.Data), nil
	case PtypString8:
		b := self.Data
		for len(b) > 0 && b[len(b)-1] == 0 {
			b = b[:len(b)-1]
		}
		return string(b), nil
	}
	return "", errors.Errorf("property type %x is not string", self.Type)
}

func (self PropertyValue) Binary() ([]byte, error) {
	switch self.Type {
	case PtypBinary, PtypObject, PtypServerId:
		return self.Data, nil
	}
	return nil, errors.Errorf("property type %x is not binary", self.Type)
}

// multiple splits variable-size multi-valued property data into
// its elements.
func (self PropertyValue) multiple() ([][]byte, error) {
	b := self.Data
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < 4 {
		return nil, errors.Errorf("multi-value too short")
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > (len(b)-4)/4 {
		return nil, errors.Errorf("multi-value count %d too large", n)
	}
	l := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := int(binary.LittleEndian.Uint32(b[4+4*i:]))
		end := len(b)
		if i < n-1 {
			end = int(binary.LittleEndian.Uint32(b[8+4*i:]))
		}
		if start < 4+4*n || start > end || end > len(b) {
			return nil, errors.Errorf("multi-value offsets %d-%d invalid", start, end)
		}
		l[i] = b[start:end]
	}
	return l, nil
}

func (self PropertyValue) Strings() ([]string, error) {
	var et PropertyType
	switch self.Type {
	case PtypMultipleString:
		et = PtypString
	case PtypMultipleString8:
		et = PtypString8
	default:
		return nil, errors.Errorf("property type %x is not multi-string", self.Type)
	}
	parts, err := self.multiple()
	if err != nil {
		return nil, err
	}
	l := make([]string, len(parts))
	for i, p := range parts {
		l[i], err = PropertyValue{Type: et, Data: p}.String()
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (self PropertyValue) Binaries() ([][]byte, error) {
	if self.Type != PtypMultipleBinary {
		return nil, errors.Errorf("property type %x is not multi-binary", self.Type)
	}
	return self.multiple()
}

func (self PropertyValue) Int32s() ([]int32, error) {
	if self.Type != PtypMultipleInt32 || len(self.Data)%4 != 0 {
		return nil, errors.Errorf("property type %x/%d is not multi-int32", self.Type, len(self.Data))
	}
	l := make([]int32, len(self.Data)/4)
	for i := range l {
		l[i] = int32(binary.LittleEndian.Uint32(self.Data[4*i:]))
	}
	return l, nil
}

// Interface returns the value as a natural Go value; unknown types
// are returned as raw bytes.
func (self PropertyValue) Interface() (interface{}, error) {
	switch self.Type {
	case PtypInteger16, PtypInteger32, PtypErrorCode:
		return self.Int32()
	case PtypInteger64, PtypCurrency:
		return self.Int64()
	case PtypFloating32, PtypFloating64, PtypFloatingTime:
		return self.Float64()
	case PtypBoolean:
		return self.Bool()
	case PtypTime:
		return self.Time()
	case PtypGuid:
		g, err := self.GUID()
		return g.String(), err
	case PtypString, PtypString8:
		return self.String()
	case PtypMultipleString, PtypMultipleString8:
		return self.Strings()
	case PtypMultipleBinary:
		return self.Binaries()
	case PtypMultipleInt32:
		return self.Int32s()
	}
	return self.Data, nil
}
