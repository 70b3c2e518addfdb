/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 27 09:10:21 2019 mstenber
 * Last modified: Wed Mar 27 12:02:40 2019 mstenber
 * Edit time:     74 min
 *
 */

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/pst"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

type dumper struct {
	file *pst.File
	w    io.Writer
	jh   codec.JsonHandle
}

func newDumper(file *pst.File, w io.Writer) *dumper {
	self := &dumper{file: file, w: w}
	self.jh.Indent = 2
	self.jh.Canonical = true
	return self
}

func (self *dumper) encode(v interface{}) error {
	enc := codec.NewEncoder(self.w, &self.jh)
	err := enc.Encode(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(self.w)
	return err
}

func (self *dumper) header() error {
	h := self.file.Header()
	dir := self.file.Directory()
	return self.encode(map[string]interface{}{
		"version":        h.Version,
		"client_version": h.ClientVersion,
		"crypt_method":   h.CryptMethod,
		"file_eof":       uint64(h.Root.FileEOF),
		"nbt_root":       h.Root.NBTRootPage.String(),
		"bbt_root":       h.Root.BBTRootPage.String(),
		"next_bid":       h.NextBID.String(),
		"nodes":          dir.NodeCount(),
		"blocks":         dir.BlockCount(),
	})
}

// nodes dumps the number of nodes per NID type.
func (self *dumper) nodes() error {
	counts := make(map[string]int)
	for _, e := range self.file.Directory().Nodes() {
		counts[fmt.Sprintf("%02x", uint8(e.NID.Type()))]++
	}
	return self.encode(counts)
}

func propertyMap(props []ltp.Property) map[string]interface{} {
	m := make(map[string]interface{})
	for _, p := range props {
		v, err := p.Value.Interface()
		if err != nil {
			v = fmt.Sprintf("error: %v", err)
		}
		m[p.Tag.String()] = v
	}
	return m
}

// properties dumps the property context of the node.
func (self *dumper) properties(nid ndb.NID) error {
	dir := self.file.Directory()
	e, found := dir.Node(nid)
	if !found {
		return errors.Wrapf(pst.ErrNodeNotFound, "%v", nid)
	}
	pc, err := ltp.OpenPropertyContext(dir, e.DataBID, e.SubnodeBID)
	if err != nil {
		return err
	}
	props, err := pc.All()
	if err != nil {
		return err
	}
	return self.encode(propertyMap(props))
}

// table dumps the table context of the node, row by row.
func (self *dumper) table(nid ndb.NID) error {
	dir := self.file.Directory()
	e, found := dir.Node(nid)
	if !found {
		return errors.Wrapf(pst.ErrNodeNotFound, "%v", nid)
	}
	tc, err := ltp.OpenTableContext(dir, e.DataBID, e.SubnodeBID)
	if err != nil {
		return err
	}
	ids, err := tc.RowIDs()
	if err != nil {
		return err
	}
	rows := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		props, err := tc.GetAll(id)
		if err != nil {
			return err
		}
		rows[i] = propertyMap(props)
	}
	return self.encode(rows)
}

func (self *dumper) tree() error {
	root, err := self.file.RootFolder()
	if err != nil {
		return err
	}
	return self.folder(root, 0)
}

func (self *dumper) folder(f *pst.Folder, depth int) error {
	mlog.Printf2("cmd/pstdump/dump", "folder %v", f.NID)
	indent := strings.Repeat("  ", depth)
	name, err := f.Name()
	if err != nil {
		return err
	}
	messages, err := f.Messages()
	if err != nil {
		return err
	}
	fmt.Fprintf(self.w, "%s%s [%v] (%d messages)\n", indent, name, f.NID, len(messages))
	for _, m := range messages {
		subject, err := m.Subject()
		if err != nil {
			return err
		}
		has, err := m.HasAttachments()
		if err != nil {
			return err
		}
		fmt.Fprintf(self.w, "%s  - %q [%v]", indent, subject, m.NID)
		if has {
			attachments, err := m.Attachments()
			if err != nil {
				return err
			}
			fmt.Fprintf(self.w, " +%d", len(attachments))
		}
		fmt.Fprintln(self.w)
	}
	subs, err := f.Subfolders()
	if err != nil {
		return err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].NID < subs[j].NID
	})
	for _, sub := range subs {
		err = self.folder(sub, depth+1)
		if err != nil {
			return err
		}
	}
	return nil
}
