/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 09:10:22 2019 mstenber
 * Last modified: Wed Mar 20 11:45:02 2019 mstenber
 * Edit time:     61 min
 *
 */

// ndb package is the node database layer of the PST container: the
// header, the node and block b-trees, data trees of (possibly
// fragmented) blocks and per-node subnode trees.
//
// Everything is read-only. The directory maps are built once in
// Open, and after that all operations only read them, so a single
// Directory may be used from multiple goroutines.
package ndb

import "fmt"

// NID identifies a node. The lowest 5 bits are the type, and rest
// the index.
type NID uint32

type NIDType uint8

const (
	NIDTypeHID                  NIDType = 0x00
	NIDTypeInternal             NIDType = 0x01
	NIDTypeNormalFolder         NIDType = 0x02
	NIDTypeSearchFolder         NIDType = 0x03
	NIDTypeNormalMessage        NIDType = 0x04
	NIDTypeAttachment           NIDType = 0x05
	NIDTypeSearchUpdateQueue    NIDType = 0x06
	NIDTypeSearchCriteriaObject NIDType = 0x07
	NIDTypeAssocMessage         NIDType = 0x08
	NIDTypeContentsTableIndex   NIDType = 0x0A
	NIDTypeReceiveFolderTable   NIDType = 0x0B
	NIDTypeOutgoingQueueTable   NIDType = 0x0C
	NIDTypeHierarchyTable       NIDType = 0x0D
	NIDTypeContentsTable        NIDType = 0x0E
	NIDTypeAssocContentsTable   NIDType = 0x0F
	NIDTypeSearchContentsTable  NIDType = 0x10
	NIDTypeAttachmentTable      NIDType = 0x11
	NIDTypeRecipientTable       NIDType = 0x12
	NIDTypeSearchTableIndex     NIDType = 0x13
	NIDTypeLTP                  NIDType = 0x1F
)

const (
	NIDMessageStore    NID = 0x21
	NIDNameToIDMap     NID = 0x61
	NIDRootFolder      NID = 0x122
	NIDAttachmentTable NID = 0x671
	NIDRecipientTable  NID = 0x692
)

const nidTypeMask = 0x1F

func MakeNID(t NIDType, index uint32) NID {
	return NID(index<<5 | uint32(t)&nidTypeMask)
}

func (self NID) Type() NIDType {
	return NIDType(self & nidTypeMask)
}

func (self NID) Index() uint32 {
	return uint32(self) >> 5
}

// WithType returns NID with same index but different type; e.g. the
// hierarchy table of a folder shares the folder's index.
func (self NID) WithType(t NIDType) NID {
	return MakeNID(t, self.Index())
}

func (self NID) String() string {
	return fmt.Sprintf("nid{%x/%x}", self.Index(), uint8(self.Type()))
}

// BID identifies a block (or a page). Bit 0 is reserved and MUST be
// ignored; bit 1 marks internal (metadata) blocks.
type BID uint64

const (
	bidReservedBit BID = 0x1
	bidInternalBit BID = 0x2
)

func (self BID) IsInternal() bool {
	return self&bidInternalBit != 0
}

// Key returns the BID with the reserved bit cleared, as used in the
// block b-tree.
func (self BID) Key() BID {
	return self &^ bidReservedBit
}

func (self BID) String() string {
	if self.IsInternal() {
		return fmt.Sprintf("bid{%x/i}", uint64(self))
	}
	return fmt.Sprintf("bid{%x}", uint64(self))
}

// IB is absolute byte offset within the container.
type IB uint64

// BREF locates a block or page physically.
type BREF struct {
	BID BID
	IB  IB
}

func (self BREF) String() string {
	return fmt.Sprintf("bref{%v@%d}", self.BID, self.IB)
}

// NodeEntry is the node b-tree leaf entry.
type NodeEntry struct {
	NID        NID
	DataBID    BID
	SubnodeBID BID
	ParentNID  NID
}

// BlockEntry is the block b-tree leaf entry. Size is the raw data
// size excluding trailer and alignment padding.
type BlockEntry struct {
	BREF     BREF
	Size     uint16
	RefCount uint16
}

// SubnodeEntry describes one child object within a node's subnode
// tree. NIDs are local to the parent node.
type SubnodeEntry struct {
	NID        NID
	DataBID    BID
	SubnodeBID BID
}
