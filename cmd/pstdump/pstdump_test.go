/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 27 12:30:11 2019 mstenber
 * Last modified: Wed Mar 27 13:41:02 2019 mstenber
 * Edit time:     33 min
 *
 */

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/archive/factory"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/pst"
	"github.com/fingon/go-pstndb/pst/psttest"
	"github.com/stvp/assert"
	"github.com/ugorji/go/codec"
)

var (
	inboxNID = ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x20)
	msg1NID  = ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x40)
	msg2NID  = ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x41)
)

func openTestFile(t *testing.T) (*pst.File, string) {
	b := ndbtest.New()
	psttest.AddStore(b, "Dump")
	psttest.AddFolder(b, ndb.NIDRootFolder, "Top", []ndb.NID{inboxNID}, nil)
	psttest.AddFolder(b, inboxNID, "Inbox", nil, []ndb.NID{msg1NID, msg2NID})
	psttest.AddMessage(b, msg1NID, psttest.Message{Subject: "Hello",
		Recipients: []psttest.Recipient{{Name: "Alice",
			Address: "alice@example.com", Type: pst.RecipientTo}},
		Attachments: []psttest.Attachment{{Filename: "a.txt", Data: []byte("a")}}})
	psttest.AddMessage(b, msg2NID, psttest.Message{Subject: "World"})
	img := b.Build()

	dir, _ := ioutil.TempDir("", "pstdump")
	path := filepath.Join(dir, "test.pst")
	err := ioutil.WriteFile(path, img.Data, 0600)
	assert.Nil(t, err)
	f, err := pst.OpenFile(path, pst.Configuration{})
	assert.Nil(t, err)
	return f, dir
}

func TestParseNID(t *testing.T) {
	t.Parallel()
	nid, err := parseNID("0x21")
	assert.Nil(t, err)
	assert.Equal(t, nid, ndb.NIDMessageStore)
	nid, err = parseNID("290")
	assert.Nil(t, err)
	assert.Equal(t, nid, ndb.NIDRootFolder)
	_, err = parseNID("nid")
	assert.NotNil(t, err)
}

func TestDumpHeader(t *testing.T) {
	t.Parallel()
	f, dir := openTestFile(t)
	defer os.RemoveAll(dir)
	defer f.Close()
	var buf bytes.Buffer
	d := newDumper(f, &buf)
	assert.Nil(t, d.header())

	var jh codec.JsonHandle
	var h struct {
		Version uint16 `codec:"version"`
		Nodes   int    `codec:"nodes"`
		NBTRoot string `codec:"nbt_root"`
	}
	err := codec.NewDecoderBytes(buf.Bytes(), &jh).Decode(&h)
	assert.Nil(t, err)
	assert.Equal(t, h.Version, uint16(ndb.VersionUnicodeMin))
	assert.Equal(t, h.Nodes, f.Directory().NodeCount())
	assert.Equal(t, h.NBTRoot, f.Header().Root.NBTRootPage.String())

	buf.Reset()
	assert.Nil(t, d.nodes())
	compact := strings.Join(strings.Fields(buf.String()), "")
	assert.True(t, strings.Contains(compact, `"02":2`))
}

func TestDumpProperties(t *testing.T) {
	t.Parallel()
	f, dir := openTestFile(t)
	defer os.RemoveAll(dir)
	defer f.Close()
	var buf bytes.Buffer
	d := newDumper(f, &buf)
	assert.Nil(t, d.properties(ndb.NIDMessageStore))
	assert.True(t, strings.Contains(buf.String(), `"Dump"`))

	buf.Reset()
	assert.Nil(t, d.table(inboxNID.WithType(ndb.NIDTypeContentsTable)))
	s := buf.String()
	assert.True(t, strings.Contains(s, "64")) // 0x40
	assert.True(t, strings.Contains(s, "65"))

	err := d.properties(ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x999))
	assert.True(t, pst.IsNodeNotFound(err))
	err = d.table(ndb.NIDMessageStore)
	assert.True(t, ndb.IsCorruptionError(err))
}

func TestDumpTree(t *testing.T) {
	t.Parallel()
	f, dir := openTestFile(t)
	defer os.RemoveAll(dir)
	defer f.Close()
	var buf bytes.Buffer
	d := newDumper(f, &buf)
	assert.Nil(t, d.tree())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "Top "))
	assert.True(t, strings.HasPrefix(lines[1], "  Inbox "))
	assert.True(t, strings.Contains(lines[2], `"Hello"`))
	assert.True(t, strings.HasSuffix(lines[2], "+1"))
	assert.True(t, strings.Contains(lines[3], `"World"`))
}

func TestExport(t *testing.T) {
	t.Parallel()
	f, dir := openTestFile(t)
	defer os.RemoveAll(dir)
	defer f.Close()
	config := factory.Configuration{BackendName: "bolt", Password: "x",
		Iterations: 16}
	config.Directory = dir
	assert.Nil(t, export(f, config, 2))

	a, err := factory.NewArchive(config)
	assert.Nil(t, err)
	defer a.Close()
	r, found, err := a.Object(archive.ObjectKey{NID: uint32(msg1NID)})
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, len(r.Children), 1)
}
