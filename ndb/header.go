/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 10:22:40 2019 mstenber
 * Last modified: Tue Mar 19 17:31:06 2019 mstenber
 * Edit time:     74 min
 *
 */

package ndb

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/mlog"
)

const (
	// HeaderSize is the prefix of the container we decode; the
	// trailing reserved bytes of the on-disk header are not used.
	HeaderSize = 546

	// HeaderDiskSize is the full on-disk header size (Unicode).
	HeaderDiskSize = 564

	HeaderMagic       uint32 = 0x4E444221 // "!BDN"
	HeaderMagicClient uint16 = 0x4D53     // "SM"

	// Version 23 or up is Unicode; 36 and up is the 4k page variant.
	VersionUnicodeMin   = 23
	VersionLargePageMin = 36

	HeaderSentinel = 0x80

	CryptMethodNone    = 0x00
	CryptMethodPermute = 0x01
	CryptMethodCyclic  = 0x02

	crcPartialOffset = 8
	crcPartialLength = 471
	crcFullOffset    = 8
	crcFullLength    = 516
)

// Root is the embedded root structure of the header.
type Root struct {
	Reserved    uint32
	FileEOF     IB
	AMapLast    IB
	AMapFree    uint64
	PMapFree    uint64
	NBTRootPage BREF
	BBTRootPage BREF
	AMapValid   uint8
	BReserved   uint8
	WReserved   uint16
}

// Header is the decoded (Unicode) container header.
type Header struct {
	Magic          uint32
	CRCPartial     uint32
	MagicClient    uint16
	Version        uint16
	ClientVersion  uint16
	PlatformCreate uint8
	PlatformAccess uint8
	Reserved1      uint32
	Reserved2      uint32
	UnusedBID      BID
	NextPageBID    BID
	Unique         uint32
	NIDs           [32]NID
	Unused         uint64
	Root           Root
	Align          uint32
	FreeMap        [128]byte
	FreePageMap    [128]byte
	Sentinel       uint8
	CryptMethod    uint8
	Reserved       uint16
	NextBID        BID
	CRCFull        uint32
	Reserved3      [3]byte
	BReserved      uint8
}

func decodeBREF(b []byte) BREF {
	return BREF{BID: BID(binary.LittleEndian.Uint64(b)),
		IB: IB(binary.LittleEndian.Uint64(b[8:]))}
}

// DecodeHeader decodes and validates the header from (at least)
// HeaderSize bytes. All failures are FormatErrors.
func DecodeHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, formatErrorf("header too short (%d < %d)", len(b), HeaderSize)
	}
	le := binary.LittleEndian
	h := &Header{}
	h.Magic = le.Uint32(b[0:])
	if h.Magic != HeaderMagic {
		return nil, formatErrorf("invalid magic %x", h.Magic)
	}
	h.CRCPartial = le.Uint32(b[4:])
	h.MagicClient = le.Uint16(b[8:])
	if h.MagicClient != HeaderMagicClient {
		return nil, formatErrorf("invalid client magic %x", h.MagicClient)
	}
	h.Version = le.Uint16(b[10:])
	if h.Version < VersionUnicodeMin {
		return nil, formatErrorf("version %d (ANSI) not supported", h.Version)
	}
	if h.Version >= VersionLargePageMin {
		return nil, formatErrorf("version %d (4k pages) not supported", h.Version)
	}
	crc := ComputeCRC(0, b[crcPartialOffset:crcPartialOffset+crcPartialLength])
	if crc != h.CRCPartial {
		return nil, formatErrorf("partial CRC mismatch %x != %x", crc, h.CRCPartial)
	}
	h.ClientVersion = le.Uint16(b[12:])
	h.PlatformCreate = b[14]
	h.PlatformAccess = b[15]
	h.Reserved1 = le.Uint32(b[16:])
	h.Reserved2 = le.Uint32(b[20:])
	h.UnusedBID = BID(le.Uint64(b[24:]))
	h.NextPageBID = BID(le.Uint64(b[32:]))
	h.Unique = le.Uint32(b[40:])
	for i := range h.NIDs {
		h.NIDs[i] = NID(le.Uint32(b[44+4*i:]))
	}
	h.Unused = le.Uint64(b[172:])

	r := &h.Root
	r.Reserved = le.Uint32(b[180:])
	r.FileEOF = IB(le.Uint64(b[184:]))
	r.AMapLast = IB(le.Uint64(b[192:]))
	r.AMapFree = le.Uint64(b[200:])
	r.PMapFree = le.Uint64(b[208:])
	r.NBTRootPage = decodeBREF(b[216:])
	r.BBTRootPage = decodeBREF(b[232:])
	r.AMapValid = b[248]
	r.BReserved = b[249]
	r.WReserved = le.Uint16(b[250:])

	h.Align = le.Uint32(b[252:])
	copy(h.FreeMap[:], b[256:384])
	copy(h.FreePageMap[:], b[384:512])
	h.Sentinel = b[512]
	h.CryptMethod = b[513]
	h.Reserved = le.Uint16(b[514:])
	h.NextBID = BID(le.Uint64(b[516:]))
	h.CRCFull = le.Uint32(b[524:])
	copy(h.Reserved3[:], b[528:531])
	h.BReserved = b[531]

	crc = ComputeCRC(0, b[crcFullOffset:crcFullOffset+crcFullLength])
	if crc != h.CRCFull {
		return nil, formatErrorf("full CRC mismatch %x != %x", crc, h.CRCFull)
	}
	if h.Sentinel != HeaderSentinel {
		return nil, formatErrorf("invalid sentinel %x", h.Sentinel)
	}
	if h.CryptMethod != CryptMethodNone {
		return nil, formatErrorf("crypt method %d not supported", h.CryptMethod)
	}
	mlog.Printf2("ndb/header", "DecodeHeader version:%d nbt:%v bbt:%v",
		h.Version, r.NBTRootPage, r.BBTRootPage)
	return h, nil
}
