/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 16:40:10 2019 mstenber
 * Last modified: Thu Mar 21 14:22:51 2019 mstenber
 * Edit time:     81 min
 *
 */

package ltptest

import (
	"encoding/binary"
	"log"
	"math"
	"sort"
	"time"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/util"
	"github.com/google/uuid"
)

func Int16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func Int32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func Int64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func Float64(v float64) []byte {
	return Int64(int64(math.Float64bits(v)))
}

func Bool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func Time(t time.Time) []byte {
	return Int64(int64(ltp.TimeToFiletime(t)))
}

func String(s string) []byte {
	return util.UTF16LEBytes(s)
}

// Strings encodes multi-valued UTF-16 string.
func Strings(l ...string) []byte {
	b := make([]byte, 4+4*len(l))
	binary.LittleEndian.PutUint32(b, uint32(len(l)))
	for i, s := range l {
		binary.LittleEndian.PutUint32(b[4+4*i:], uint32(len(b)))
		b = append(b, String(s)...)
	}
	return b
}

// nodeValues places values either in the heap or in subnodes.
type nodeValues struct {
	heap     *Heap
	builder  *ndbtest.Builder
	subnodes []ndb.SubnodeEntry
	nextNID  uint32
}

func (self *nodeValues) addSubnode(bid ndb.BID) ndb.NID {
	self.nextNID++
	nid := ndb.MakeNID(ndb.NIDTypeLTP, self.nextNID)
	self.subnodes = append(self.subnodes, ndb.SubnodeEntry{NID: nid,
		DataBID: bid})
	return nid
}

func (self *nodeValues) store(data []byte) ltp.HNID {
	if len(data) == 0 {
		return 0
	}
	if len(data) <= ltp.MaxHeapAllocation {
		return ltp.HNID(self.heap.Allocate(data))
	}
	return ltp.HNID(self.addSubnode(self.builder.AddData(data)))
}

func (self *nodeValues) finish(extra []ndb.SubnodeEntry) (dataBID, subBID ndb.BID) {
	dataBID = self.heap.Store(self.builder)
	l := append(self.subnodes, extra...)
	if len(l) > 0 {
		subBID = self.builder.AddSubnodes(l)
	}
	return
}

// PC encodes a property context.
type PC struct {
	PageSize int
	Fanout   int

	props    []ltp.Property
	subnodes []ndb.SubnodeEntry
}

func (self *PC) Add(tag ltp.PropertyTag, data []byte) *PC {
	self.props = append(self.props, ltp.Property{Tag: tag,
		Value: ltp.PropertyValue{Type: tag.Type, Data: data}})
	return self
}

// AddSubnode adds a child object (e.g. table) to the node.
func (self *PC) AddSubnode(e ndb.SubnodeEntry) *PC {
	self.subnodes = append(self.subnodes, e)
	return self
}

func (self *PC) Build(b *ndbtest.Builder) (dataBID, subBID ndb.BID) {
	nv := &nodeValues{heap: NewHeap(ltp.ClientSigPC), builder: b}
	nv.heap.PageSize = self.PageSize
	props := append([]ltp.Property{}, self.props...)
	sort.SliceStable(props, func(i, j int) bool {
		return props[i].Tag.ID < props[j].Tag.ID
	})
	var records []Record
	for _, p := range props {
		r := make([]byte, 6)
		binary.LittleEndian.PutUint16(r, uint16(p.Tag.Type))
		size, fixed := ltp.FixedSize(p.Tag.Type)
		if fixed && size <= 4 {
			copy(r[2:], p.Value.Data)
		} else {
			binary.LittleEndian.PutUint32(r[2:], uint32(nv.store(p.Value.Data)))
		}
		records = append(records, Record{Key: uint32(p.Tag.ID), Data: r})
	}
	nv.heap.UserRoot = nv.heap.AddBTH(2, 6, records, self.Fanout)
	return nv.finish(self.subnodes)
}

// TC encodes a table context. The row id and row version columns
// are added automatically.
type TC struct {
	PageSize      int
	Fanout        int
	RowsInSubnode bool
	Columns       []ltp.PropertyTag

	// IndexSkew is added to the row indexes stored in the row
	// index; non-zero produces broken table.
	IndexSkew int

	rows     []tcRow
	subnodes []ndb.SubnodeEntry
}

type tcRow struct {
	id     ltp.RowID
	values map[ltp.PropertyID][]byte
}

// AddRow adds row; columns without value have their cell unset.
func (self *TC) AddRow(id ltp.RowID, values map[ltp.PropertyID][]byte) *TC {
	self.rows = append(self.rows, tcRow{id: id, values: values})
	return self
}

func (self *TC) AddSubnode(e ndb.SubnodeEntry) *TC {
	self.subnodes = append(self.subnodes, e)
	return self
}

func cellSize(t ltp.PropertyType) int {
	size, fixed := ltp.FixedSize(t)
	if fixed && size <= 8 {
		return size
	}
	return 4
}

// Layout returns the columns as they are laid out in the rows, and
// the TCI offsets.
func (self *TC) Layout() ([]ltp.Column, [4]int) {
	var cols []ltp.Column
	cols = append(cols,
		ltp.Column{Tag: ltp.PropertyTag{ID: ltp.PidTagLtpRowId, Type: ltp.PtypInteger32}, Size: 4},
		ltp.Column{Tag: ltp.PropertyTag{ID: ltp.PidTagLtpRowVer, Type: ltp.PtypInteger32}, Size: 4})
	for _, tag := range self.Columns {
		cols = append(cols, ltp.Column{Tag: tag, Size: cellSize(tag.Type)})
	}
	for i := range cols {
		cols[i].Bit = i
	}
	var offsets [4]int
	ofs := 8
	cols[1].Offset = 4
	for gi, group := range [][]int{{8, 4}, {2}, {1}} {
		for _, size := range group {
			for i := 2; i < len(cols); i++ {
				if cols[i].Size == size {
					cols[i].Offset = ofs
					ofs += size
				}
			}
		}
		offsets[gi] = ofs
	}
	offsets[3] = ofs + (len(cols)+7)/8
	return cols, offsets
}

func (self *TC) Build(b *ndbtest.Builder) (dataBID, subBID ndb.BID) {
	nv := &nodeValues{heap: NewHeap(ltp.ClientSigTC), builder: b}
	nv.heap.PageSize = self.PageSize
	cols, offsets := self.Layout()
	rowSize := offsets[3]
	le := binary.LittleEndian
	rows := make([][]byte, len(self.rows))
	var records []Record
	for ri, row := range self.rows {
		r := make([]byte, rowSize)
		le.PutUint32(r, uint32(row.id))
		ceb := r[offsets[2]:]
		ceb[0] |= 0xC0
		for _, c := range cols[2:] {
			data, ok := row.values[c.Tag.ID]
			if !ok {
				continue
			}
			size, fixed := ltp.FixedSize(c.Tag.Type)
			if fixed && size <= 8 {
				if len(data) != size {
					log.Panicf("invalid data size %d for %v", len(data), c.Tag)
				}
				copy(r[c.Offset:], data)
			} else {
				le.PutUint32(r[c.Offset:], uint32(nv.store(data)))
			}
			ceb[c.Bit/8] |= 1 << uint(7-c.Bit%8)
		}
		rows[ri] = r
		idx := make([]byte, 4)
		le.PutUint32(idx, uint32(ri+self.IndexSkew))
		records = append(records, Record{Key: uint32(row.id), Data: idx})
	}
	var hnidRows ltp.HNID
	total := rowSize * len(rows)
	switch {
	case len(rows) == 0:
	case !self.RowsInSubnode && total <= ltp.MaxHeapAllocation:
		hnidRows = ltp.HNID(nv.heap.Allocate(util.ConcatBytes(rows...)))
	default:
		perBlock := ndb.MaxBlockDataSize / rowSize
		var blocks [][]byte
		for start := 0; start < len(rows); start += perBlock {
			end := util.IMin(start+perBlock, len(rows))
			blocks = append(blocks, util.ConcatBytes(rows[start:end]...))
		}
		hnidRows = ltp.HNID(nv.addSubnode(b.AddDataBlocks(blocks)))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})
	hidRowIndex := nv.heap.AddBTH(4, 4, records, self.Fanout)

	descs := append([]ltp.Column{}, cols...)
	sort.Slice(descs, func(i, j int) bool {
		return descs[i].Tag.Uint32() < descs[j].Tag.Uint32()
	})
	info := make([]byte, 22+8*len(descs))
	info[0] = ltp.ClientSigTC
	info[1] = byte(len(descs))
	for i, o := range offsets {
		le.PutUint16(info[2+2*i:], uint16(o))
	}
	le.PutUint32(info[10:], uint32(hidRowIndex))
	le.PutUint32(info[14:], uint32(hnidRows))
	for i, c := range descs {
		d := info[22+8*i:]
		le.PutUint32(d, c.Tag.Uint32())
		le.PutUint16(d[4:], uint16(c.Offset))
		d[6] = byte(c.Size)
		d[7] = byte(c.Bit)
	}
	nv.heap.UserRoot = nv.heap.Allocate(info)
	return nv.finish(self.subnodes)
}

// NameMap encodes the name-to-id map node.
type NameMap struct {
	guids   []uuid.UUID
	entries []byte
	strs    []byte
	count   int
}

func (self *NameMap) guidIndex(set uuid.UUID) uint16 {
	switch set {
	case uuid.Nil:
		return 0
	case ltp.PS_MAPI:
		return 1
	case ltp.PS_PUBLIC_STRINGS:
		return 2
	}
	for i, g := range self.guids {
		if g == set {
			return uint16(3 + i)
		}
	}
	self.guids = append(self.guids, set)
	return uint16(3 + len(self.guids) - 1)
}

func (self *NameMap) add(id uint32, wGuid uint16) ltp.PropertyID {
	e := make([]byte, 8)
	binary.LittleEndian.PutUint32(e, id)
	binary.LittleEndian.PutUint16(e[4:], wGuid)
	binary.LittleEndian.PutUint16(e[6:], uint16(self.count))
	self.entries = append(self.entries, e...)
	self.count++
	return ltp.NamedPropertyBase + ltp.PropertyID(self.count-1)
}

func (self *NameMap) AddNumerical(set uuid.UUID, id uint32) ltp.PropertyID {
	return self.add(id, self.guidIndex(set)<<1)
}

func (self *NameMap) AddString(set uuid.UUID, name string) ltp.PropertyID {
	ofs := len(self.strs)
	s := String(name)
	l := make([]byte, 4, 4+len(s))
	binary.LittleEndian.PutUint32(l, uint32(len(s)))
	self.strs = append(self.strs, append(l, s...)...)
	for len(self.strs)%4 != 0 {
		self.strs = append(self.strs, 0)
	}
	return self.add(uint32(ofs), self.guidIndex(set)<<1|1)
}

func (self *NameMap) PC() *PC {
	var guids []byte
	for _, g := range self.guids {
		guids = append(guids, ltp.GUIDBytes(g)...)
	}
	pc := &PC{}
	addBinary := func(id ltp.PropertyID, data []byte) {
		pc.Add(ltp.PropertyTag{ID: id, Type: ltp.PtypBinary}, data)
	}
	pc.Add(ltp.PropertyTag{ID: ltp.PidTagNameidBucketCount, Type: ltp.PtypInteger32}, Int32(251))
	addBinary(ltp.PidTagNameidStreamGuid, guids)
	addBinary(ltp.PidTagNameidStreamEntry, self.entries)
	addBinary(ltp.PidTagNameidStreamString, self.strs)
	return pc
}

// Build stores the map as the well-known node.
func (self *NameMap) Build(b *ndbtest.Builder) {
	dataBID, subBID := self.PC().Build(b)
	b.AddNode(ndb.NodeEntry{NID: ndb.NIDNameToIDMap, DataBID: dataBID,
		SubnodeBID: subBID})
}
