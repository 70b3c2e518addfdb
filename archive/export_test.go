/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 15:40:02 2019 mstenber
 * Last modified: Tue Mar 26 17:12:45 2019 mstenber
 * Edit time:     58 min
 *
 */

package archive_test

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/archive/factory"
	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/ltp/ltptest"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/pst"
	"github.com/fingon/go-pstndb/pst/psttest"
	"github.com/stvp/assert"
)

const (
	exportMessages = 20
	exportFolders  = 4 // root + 3 subfolders
)

var (
	subfolderNIDs = []ndb.NID{
		ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x20),
		ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x21),
		ndb.MakeNID(ndb.NIDTypeSearchFolder, 0x22),
	}
	bigAttachment = bytes.Repeat([]byte("0123456789abcdef"), 1024)
)

func messageNID(i int) ndb.NID {
	return ndb.MakeNID(ndb.NIDTypeNormalMessage, uint32(0x100+i))
}

// buildExportFile produces store where messages are split between
// the two normal folders, and the search folder refers to some of
// them again.
func buildExportFile(broken bool) *ndbtest.Image {
	b := ndbtest.New()
	psttest.AddStore(b, "Export")
	psttest.AddFolder(b, ndb.NIDRootFolder, "Top", subfolderNIDs, nil)
	var lists [2][]ndb.NID
	for i := 0; i < exportMessages; i++ {
		nid := messageNID(i)
		lists[i%2] = append(lists[i%2], nid)
		m := psttest.Message{Subject: fmt.Sprintf("message %d", i),
			Recipients: []psttest.Recipient{
				{Name: "Alice", Address: "alice@example.com", Type: pst.RecipientTo}}}
		if i%5 == 0 {
			m.Attachments = []psttest.Attachment{
				{Filename: "small.txt", Data: []byte("small")},
				{Filename: "big.bin", Data: bigAttachment},
			}
		}
		if broken && i == exportMessages-1 {
			psttest.AddPC(b, nid, (&ltptest.PC{}).
				Add(pst.PidTagSubject, ltptest.String("no recipients")))
			continue
		}
		psttest.AddMessage(b, nid, m)
	}
	psttest.AddFolder(b, subfolderNIDs[0], "Inbox", nil, lists[0])
	psttest.AddFolder(b, subfolderNIDs[1], "Sent", nil, lists[1])
	psttest.AddFolder(b, subfolderNIDs[2], "Search", nil, lists[0][:3])
	return b.Build()
}

func openExportFile(t *testing.T, broken bool) *pst.File {
	img := buildExportFile(broken)
	f, err := pst.Open(img.Backend(), pst.Configuration{})
	assert.Nil(t, err)
	return f
}

func checkExport(t *testing.T, a *archive.Archive) {
	keys, err := a.ObjectKeys()
	assert.Nil(t, err)
	// store + folders + messages + 2 attachments per 5 messages
	assert.Equal(t, len(keys), 1+exportFolders+exportMessages+2*exportMessages/5)

	r, found, err := a.Object(archive.ObjectKey{NID: uint32(ndb.NIDRootFolder)})
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, r.Kind, archive.ObjectKindFolder)
	assert.Equal(t, len(r.Children), len(subfolderNIDs))

	m0 := uint32(messageNID(0))
	r, found, err = a.Object(archive.ObjectKey{NID: m0})
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, r.Kind, archive.ObjectKindMessage)
	assert.Equal(t, len(r.Recipients), 1)
	assert.Equal(t, len(r.Children), 2)
	found = false
	for _, p := range r.Properties {
		if ltp.TagFromUint32(p.Tag) == pst.PidTagSubject {
			data, err := a.PropertyData(p)
			assert.Nil(t, err)
			assert.Equal(t, data, ltptest.String("message 0"))
			found = true
		}
	}
	assert.True(t, found)

	att, found, err := a.Object(archive.ObjectKey{Parent: m0, NID: r.Children[1]})
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, att.Kind, archive.ObjectKindAttachment)
	found = false
	for _, p := range att.Properties {
		if ltp.TagFromUint32(p.Tag) == pst.PidTagAttachDataBinary {
			assert.True(t, len(p.ContentID) > 0)
			data, err := a.PropertyData(p)
			assert.Nil(t, err)
			assert.Equal(t, data, bigAttachment)
			found = true
		}
	}
	assert.True(t, found)

	// all big attachments share single content
	contents, err := a.Backend.Keys(archive.BucketContent)
	assert.Nil(t, err)
	assert.Equal(t, len(contents), 1)

	v, found, err := a.Meta(archive.MetaVersion)
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, string(v), fmt.Sprintf("%d", ndb.VersionUnicodeMin))
}

func TestExport(t *testing.T) {
	t.Parallel()
	for _, bename := range []string{"inmemory", "bolt"} {
		bename := bename
		for _, workers := range []int{0, 1, 7} {
			workers := workers
			t.Run(fmt.Sprintf("%s/%d", bename, workers), func(t *testing.T) {
				t.Parallel()
				dir, _ := ioutil.TempDir("", bename)
				defer os.RemoveAll(dir)
				config := factory.Configuration{BackendName: bename}
				config.Directory = dir
				a, err := factory.NewArchive(config)
				assert.Nil(t, err)
				defer a.Close()

				f := openExportFile(t, false)
				defer f.Close()
				e := archive.Exporter{File: f, Archive: a, Workers: workers}.Init()
				err = e.Export(context.Background())
				assert.Nil(t, err)
				assert.Equal(t, e.Stats.Folders.GetInt(), exportFolders)
				assert.Equal(t, e.Stats.Messages.GetInt(), exportMessages)
				assert.Equal(t, e.Stats.Recipients.GetInt(), exportMessages)
				assert.Equal(t, e.Stats.Attachments.GetInt(), 2*exportMessages/5)
				checkExport(t, a)
			})
		}
	}
}

func TestExportBroken(t *testing.T) {
	t.Parallel()
	a, err := factory.NewArchive(factory.Configuration{BackendName: "inmemory"})
	assert.Nil(t, err)
	f := openExportFile(t, true)
	e := archive.Exporter{File: f, Archive: a, Workers: 3}.Init()
	err = e.Export(context.Background())
	assert.True(t, ndb.IsCorruptionError(err))
}

func TestExportCancel(t *testing.T) {
	t.Parallel()
	a, err := factory.NewArchive(factory.Configuration{BackendName: "inmemory"})
	assert.Nil(t, err)
	f := openExportFile(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := archive.Exporter{File: f, Archive: a}.Init()
	err = e.Export(ctx)
	assert.Equal(t, err, context.Canceled)
}
