/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 11:02:13 2019 mstenber
 * Last modified: Tue Mar 26 14:30:20 2019 mstenber
 * Edit time:     49 min
 *
 */

package archive_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/archive/factory"
	"github.com/stvp/assert"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()
	k := archive.ObjectKey{Parent: 0x204, NID: 0x25}
	b := k.Bytes()
	assert.Equal(t, len(b), 8)
	k2, err := archive.ObjectKeyFromBytes(b)
	assert.Nil(t, err)
	assert.Equal(t, k2, k)
	assert.Equal(t, k.String(), "204/25")
	assert.Equal(t, archive.ObjectKey{NID: 0x122}.String(), "122")
	_, err = archive.ObjectKeyFromBytes(b[1:])
	assert.NotNil(t, err)
}

func testRecord() *archive.ObjectRecord {
	return &archive.ObjectRecord{
		Kind: archive.ObjectKindMessage,
		Key:  archive.ObjectKey{NID: 0x204},
		Properties: []archive.PropertyRecord{
			{Tag: 0x0037001F, Data: []byte("plaintext subject line")},
			{Tag: 0x10000102, ContentID: archive.ContentID([]byte("x"))},
		},
		Recipients: []archive.RowRecord{
			{ID: 1, Properties: []archive.PropertyRecord{
				{Tag: 0x3001001F, Data: []byte("a\x00")}}},
		},
		Children: []uint32{0x25, 0x45},
	}
}

func checkRecord(t *testing.T, r, r2 *archive.ObjectRecord) {
	assert.Equal(t, r2.Kind, r.Kind)
	assert.Equal(t, r2.Key, r.Key)
	assert.Equal(t, r2.Children, r.Children)
	assert.Equal(t, len(r2.Properties), len(r.Properties))
	for i, p := range r.Properties {
		assert.Equal(t, r2.Properties[i].Tag, p.Tag)
		assert.True(t, bytes.Equal(r2.Properties[i].Data, p.Data))
		assert.True(t, bytes.Equal(r2.Properties[i].ContentID, p.ContentID))
	}
	assert.Equal(t, len(r2.Recipients), len(r.Recipients))
	for i, row := range r.Recipients {
		assert.Equal(t, r2.Recipients[i].ID, row.ID)
		assert.Equal(t, len(r2.Recipients[i].Properties), len(row.Properties))
	}
}

func TestRecordTruncated(t *testing.T) {
	t.Parallel()
	r := testRecord()
	b, err := r.MarshalMsg(nil)
	assert.Nil(t, err)
	for _, n := range []int{0, 1, len(b) / 2, len(b) - 1} {
		var r2 archive.ObjectRecord
		_, err = r2.UnmarshalMsg(b[:n])
		assert.NotNil(t, err)
	}
}

func prodArchive(t *testing.T, a *archive.Archive) {
	r := testRecord()
	_, found, err := a.Object(r.Key)
	assert.Nil(t, err)
	assert.True(t, !found)

	err = a.PutObject(r)
	assert.Nil(t, err)
	r2, found, err := a.Object(r.Key)
	assert.Nil(t, err)
	assert.True(t, found)
	checkRecord(t, r, r2)

	att := &archive.ObjectRecord{Kind: archive.ObjectKindAttachment,
		Key: archive.ObjectKey{Parent: 0x204, NID: 0x25}}
	assert.Nil(t, a.PutObject(att))
	keys, err := a.ObjectKeys()
	assert.Nil(t, err)
	assert.Equal(t, keys, []archive.ObjectKey{{NID: 0x204}, att.Key})

	data := bytes.Repeat([]byte("content "), 500)
	id, err := a.PutContent(data)
	assert.Nil(t, err)
	assert.Equal(t, id, archive.ContentID(data))
	id2, err := a.PutContent(data)
	assert.Nil(t, err)
	assert.Equal(t, id2, id)
	contents, err := a.Backend.Keys(archive.BucketContent)
	assert.Nil(t, err)
	assert.Equal(t, len(contents), 1)

	got, err := a.PropertyData(archive.PropertyRecord{ContentID: id})
	assert.Nil(t, err)
	assert.Equal(t, got, data)
	got, err = a.PropertyData(archive.PropertyRecord{Data: []byte("inline")})
	assert.Nil(t, err)
	assert.Equal(t, got, []byte("inline"))
	_, err = a.PropertyData(archive.PropertyRecord{ContentID: archive.ContentID([]byte("nope"))})
	assert.NotNil(t, err)

	assert.Nil(t, a.SetMeta("version", []byte("23")))
	v, found, err := a.Meta("version")
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, v, []byte("23"))
}

func TestArchive(t *testing.T) {
	t.Parallel()
	for _, bename := range factory.List() {
		bename := bename
		for _, password := range []string{"", "secret"} {
			password := password
			t.Run(bename+"/"+password, func(t *testing.T) {
				t.Parallel()
				dir, _ := ioutil.TempDir("", bename)
				defer os.RemoveAll(dir)
				config := factory.Configuration{BackendName: bename,
					Password: password, Iterations: 16}
				config.Directory = dir
				a, err := factory.NewArchive(config)
				assert.Nil(t, err)
				defer a.Close()
				prodArchive(t, a)
			})
		}
	}
}

func TestArchiveEncrypted(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "bolt")
	defer os.RemoveAll(dir)
	config := factory.Configuration{BackendName: "bolt",
		Password: "secret", Iterations: 16}
	config.Directory = dir
	a, err := factory.NewArchive(config)
	assert.Nil(t, err)
	r := testRecord()
	assert.Nil(t, a.PutObject(r))

	// raw value is neither plaintext nor readable with other password
	raw, found, err := a.Backend.Get(archive.BucketObject, r.Key.Bytes())
	assert.Nil(t, err)
	assert.True(t, found)
	assert.True(t, !bytes.Contains(raw, []byte("plaintext")))

	// value stored under wrong key fails authentication
	err = a.Backend.Set(archive.BucketObject, archive.ObjectKey{NID: 1}.Bytes(), raw)
	assert.Nil(t, err)
	_, _, err = a.Object(archive.ObjectKey{NID: 1})
	assert.NotNil(t, err)
	assert.Nil(t, a.Close())

	config.Password = "other"
	a, err = factory.NewArchive(config)
	assert.Nil(t, err)
	defer a.Close()
	_, _, err = a.Object(r.Key)
	assert.NotNil(t, err)
}
