/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 09:12:04 2019 mstenber
 * Last modified: Thu Mar 21 11:31:27 2019 mstenber
 * Edit time:     88 min
 *
 */

package ltp

import (
	"encoding/binary"
	"sort"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/pkg/errors"
)

const (
	tcInfoSize       = 22
	tcColumnSize     = 8
	tcInlineMax      = 8
	tcRowIndexKey    = 4
	tcRowIndexEntry  = 4
	PidTagLtpRowId   = PropertyID(0x67F2)
	PidTagLtpRowVer  = PropertyID(0x67F3)
	tciOffsets       = 4
	tci4b, tci2b     = 0, 1
	tci1b, tciBitmap = 2, 3
)

// ErrRowNotFound is returned when the requested row id is not in
// the table.
var ErrRowNotFound = errors.New("row not found")

type RowID uint32

// Row locates single row of a table.
type Row struct {
	ID    RowID
	Index int
}

// Column describes where a column's cells are within a row.
type Column struct {
	Tag    PropertyTag
	Offset int
	Size   int
	Bit    int
}

// TableContext is a node holding rows of cells; each row is
// identified by row id.
type TableContext struct {
	heapNode

	Columns []Column

	// Offsets of the 4+8, 2 and 1 byte cell ends, and the row size.
	Offsets [tciOffsets]int

	index *BTH
	rows  [][]byte
}

func tcCorruptf(format string, args ...interface{}) error {
	return ndb.Corruptf("table context", format, args...)
}

// OpenTableContext decodes the table information and the row
// matrix of the node.
func OpenTableContext(dir *ndb.Directory, dataBID, subBID ndb.BID) (*TableContext, error) {
	mlog.Printf2("ltp/tc", "OpenTableContext %v %v", dataBID, subBID)
	hn, err := openHeapNode(dir, dataBID, subBID, ClientSigTC)
	if err != nil {
		return nil, err
	}
	self := &TableContext{heapNode: hn}
	b, err := hn.heap.Get(hn.heap.UserRoot)
	if err != nil {
		return nil, err
	}
	if len(b) < tcInfoSize || b[0] != ClientSigTC {
		return nil, tcCorruptf("invalid info")
	}
	le := binary.LittleEndian
	cCols := int(b[1])
	for i := range self.Offsets {
		self.Offsets[i] = int(le.Uint16(b[2+2*i:]))
		if i > 0 && self.Offsets[i] < self.Offsets[i-1] {
			return nil, tcCorruptf("offsets %v", self.Offsets)
		}
	}
	rowSize := self.Offsets[tciBitmap]
	cebSize := rowSize - self.Offsets[tci1b]
	if cebSize < (cCols+7)/8 {
		return nil, tcCorruptf("bitmap %d bytes for %d columns", cebSize, cCols)
	}
	hidRowIndex := HID(le.Uint32(b[10:]))
	hnidRows := HNID(le.Uint32(b[14:]))
	if len(b) < tcInfoSize+cCols*tcColumnSize {
		return nil, tcCorruptf("%d columns do not fit", cCols)
	}
	self.Columns = make([]Column, cCols)
	for i := range self.Columns {
		cb := b[tcInfoSize+i*tcColumnSize:]
		c := Column{Tag: TagFromUint32(le.Uint32(cb)),
			Offset: int(le.Uint16(cb[4:])),
			Size:   int(cb[6]),
			Bit:    int(cb[7])}
		if c.Offset+c.Size > self.Offsets[tci1b] || c.Bit/8 >= cebSize {
			return nil, tcCorruptf("column %v outside row", c.Tag)
		}
		self.Columns[i] = c
	}
	self.index, err = OpenBTH(hn.heap, hidRowIndex, &dir.Limits)
	if err != nil {
		return nil, err
	}
	if self.index.KeySize != tcRowIndexKey || self.index.EntrySize != tcRowIndexEntry {
		return nil, tcCorruptf("row index record size %d/%d",
			self.index.KeySize, self.index.EntrySize)
	}
	err = self.readRows(hnidRows, rowSize)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("ltp/tc", " %d columns, %d rows", cCols, len(self.rows))
	return self, nil
}

func (self *TableContext) readRows(hnid HNID, rowSize int) error {
	if hnid == 0 {
		return nil
	}
	if rowSize < 4 {
		return tcCorruptf("row size %d", rowSize)
	}
	var blocks [][]byte
	if hnid.IsHID() {
		b, err := self.heap.Get(HID(hnid))
		if err != nil {
			return err
		}
		if len(b)%rowSize != 0 {
			return tcCorruptf("row matrix size %d not multiple of %d", len(b), rowSize)
		}
		blocks = [][]byte{b}
	} else {
		nid := ndb.NID(hnid)
		e, found, err := self.dir.FindSubnode(self.subnodes, nid)
		if err != nil {
			return err
		}
		if !found {
			return tcCorruptf("row matrix subnode %v missing", nid)
		}
		blocks, err = self.dir.ReadDataBlocks(e.DataBID)
		if err != nil {
			return err
		}
	}
	perBlock := ndb.MaxBlockDataSize / rowSize
	for i, b := range blocks {
		n := len(b) / rowSize
		if n > perBlock || (i < len(blocks)-1 && n != perBlock) {
			return tcCorruptf("row matrix block %d has %d rows", i, n)
		}
		for j := 0; j < n; j++ {
			self.rows = append(self.rows, b[j*rowSize:(j+1)*rowSize])
		}
	}
	return nil
}

// RowCount is the number of rows in the row matrix.
func (self *TableContext) RowCount() int {
	return len(self.rows)
}

func (self *TableContext) row(id RowID, data []byte) ([]byte, int, error) {
	index := int(binary.LittleEndian.Uint32(data))
	if index >= len(self.rows) {
		return nil, 0, tcCorruptf("row %x index %d >= %d", id, index, len(self.rows))
	}
	r := self.rows[index]
	if sid := RowID(binary.LittleEndian.Uint32(r)); sid != id {
		return nil, 0, tcCorruptf("row %d has id %x, not %x", index, sid, id)
	}
	return r, index, nil
}

// Rows returns every row once, in row matrix order.
func (self *TableContext) Rows() ([]Row, error) {
	var l []Row
	err := self.index.Walk(func(key uint32, data []byte) error {
		_, index, err := self.row(RowID(key), data)
		if err != nil {
			return err
		}
		l = append(l, Row{ID: RowID(key), Index: index})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].Index < l[j].Index
	})
	for i := 1; i < len(l); i++ {
		if l[i].Index == l[i-1].Index {
			return nil, tcCorruptf("row %d indexed twice", l[i].Index)
		}
	}
	return l, nil
}

// RowIDs returns the ids of every row, in row matrix order.
func (self *TableContext) RowIDs() ([]RowID, error) {
	rows, err := self.Rows()
	if err != nil {
		return nil, err
	}
	l := make([]RowID, len(rows))
	for i, r := range rows {
		l[i] = r.ID
	}
	return l, nil
}

// Column returns the column of the property id.
func (self *TableContext) Column(id PropertyID) (Column, bool) {
	for _, c := range self.Columns {
		if c.Tag.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

func (self *TableContext) cell(r []byte, c Column) (v PropertyValue, found bool, err error) {
	ceb := r[self.Offsets[tci1b]:]
	if ceb[c.Bit/8]&(1<<uint(7-c.Bit%8)) == 0 {
		return
	}
	cell := r[c.Offset : c.Offset+c.Size]
	size, fixed := FixedSize(c.Tag.Type)
	if !fixed || size > tcInlineMax {
		size = 4
	}
	if c.Size != size {
		err = tcCorruptf("column %v cell size %d != %d", c.Tag, c.Size, size)
		return
	}
	var hnid HNID
	if size == 4 {
		hnid = HNID(binary.LittleEndian.Uint32(cell))
	}
	v, err = self.value(c.Tag.Type, cell, hnid, tcInlineMax)
	found = err == nil
	return
}

// Get returns the cell of the row. ErrRowNotFound is returned if
// there is no such row; absent column, type mismatch or an unset
// cell produce found=false.
func (self *TableContext) Get(id RowID, tag PropertyTag) (PropertyValue, bool, error) {
	mlog.Printf2("ltp/tc", "Get %x %v", id, tag)
	data, found, err := self.index.Find(uint32(id))
	if err != nil {
		return PropertyValue{}, false, err
	}
	if !found {
		return PropertyValue{}, false, errors.Wrapf(ErrRowNotFound, "row %x", id)
	}
	r, _, err := self.row(id, data)
	if err != nil {
		return PropertyValue{}, false, err
	}
	c, ok := self.Column(tag.ID)
	if !ok || !tag.matches(c.Tag.Type) {
		return PropertyValue{}, false, nil
	}
	return self.cell(r, c)
}

// GetAll returns all set cells of the row in column order.
func (self *TableContext) GetAll(id RowID) ([]Property, error) {
	var l []Property
	for _, c := range self.Columns {
		v, found, err := self.Get(id, c.Tag)
		if err != nil {
			return nil, err
		}
		if found {
			l = append(l, Property{Tag: c.Tag, Value: v})
		}
	}
	return l, nil
}

// ReadRowProperty is shorthand for reading single cell of a table.
func ReadRowProperty(dir *ndb.Directory, dataBID, subBID ndb.BID, id RowID, tag PropertyTag) (PropertyValue, bool, error) {
	tc, err := OpenTableContext(dir, dataBID, subBID)
	if err != nil {
		return PropertyValue{}, false, err
	}
	return tc.Get(id, tag)
}

// IsRowNotFound checks whether err is (wrapped) ErrRowNotFound.
func IsRowNotFound(err error) bool {
	return errors.Cause(err) == ErrRowNotFound
}
