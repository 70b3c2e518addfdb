/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 22 14:10:02 2019 mstenber
 * Last modified: Fri Mar 22 16:45:31 2019 mstenber
 * Edit time:     71 min
 *
 */

package pst_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/ltp/ltptest"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/pst"
	"github.com/fingon/go-pstndb/pst/psttest"
	"github.com/stvp/assert"
)

var (
	inboxNID   = ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x20)
	searchNID  = ndb.MakeNID(ndb.NIDTypeSearchFolder, 0x21)
	brokenNID  = ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x22)
	messageNID = ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x40)
	lonelyNID  = ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x41)
	attachNID  = ndb.MakeNID(ndb.NIDTypeAttachment, 1)

	attachData = bytes.Repeat([]byte("attachment "), 1000)
)

func buildFile(t *testing.T) *ndbtest.Image {
	b := ndbtest.New()
	nm := &ltptest.NameMap{}
	reminderID := nm.AddNumerical(pst.PSETID_Common, 0x8503)
	keywordsID := nm.AddString(ltp.PS_PUBLIC_STRINGS, "Keywords")
	nm.Build(b)

	psttest.AddStore(b, "Personal Folders")

	psttest.AddFolder(b, ndb.NIDRootFolder, "Top", []ndb.NID{inboxNID, searchNID}, nil)
	psttest.AddFolder(b, inboxNID, "Inbox", nil, []ndb.NID{messageNID, lonelyNID})
	psttest.AddPC(b, searchNID, (&ltptest.PC{}).
		Add(pst.PidTagDisplayName, ltptest.String("Search")))
	psttest.AddPC(b, brokenNID, (&ltptest.PC{}).
		Add(pst.PidTagDisplayName, ltptest.String("Broken")))

	rtc := &ltptest.TC{Columns: []ltp.PropertyTag{pst.PidTagDisplayName,
		pst.PidTagSmtpAddress, pst.PidTagEmailAddress, pst.PidTagRecipientType}}
	rtc.AddRow(1, map[ltp.PropertyID][]byte{
		pst.PidTagDisplayName.ID:   ltptest.String("Alice"),
		pst.PidTagSmtpAddress.ID:   ltptest.String("alice@example.com"),
		pst.PidTagRecipientType.ID: ltptest.Int32(pst.RecipientTo),
	})
	rtc.AddRow(2, map[ltp.PropertyID][]byte{
		pst.PidTagDisplayName.ID:   ltptest.String("Bob"),
		pst.PidTagEmailAddress.ID:  ltptest.String("/o=x/cn=bob"),
		pst.PidTagRecipientType.ID: ltptest.Int32(pst.RecipientCc),
	})
	rData, rSub := rtc.Build(b)

	atc := &ltptest.TC{Columns: []ltp.PropertyTag{pst.PidTagAttachSize}}
	atc.AddRow(ltp.RowID(attachNID), map[ltp.PropertyID][]byte{
		pst.PidTagAttachSize.ID: ltptest.Int32(int32(len(attachData))),
	})
	aData, aSub := atc.Build(b)

	apcData, apcSub := (&ltptest.PC{}).
		Add(pst.PidTagAttachLongFilename, ltptest.String("notes.txt")).
		Add(pst.PidTagAttachFilename, ltptest.String("NOTES.TXT")).
		Add(pst.PidTagAttachDataBinary, attachData).
		Build(b)

	psttest.AddPC(b, messageNID, (&ltptest.PC{}).
		Add(pst.PidTagMessageClass, ltptest.String("IPM.Note")).
		Add(pst.PidTagSubject, ltptest.String("\x01\x04Re: Hello")).
		Add(pst.PidTagMessageFlags, ltptest.Int32(pst.MSGFLAG_READ|pst.MSGFLAG_HASATTACH)).
		Add(ltp.PropertyTag{ID: reminderID, Type: ltp.PtypBoolean}, ltptest.Bool(true)).
		Add(ltp.PropertyTag{ID: keywordsID, Type: ltp.PtypMultipleString},
			ltptest.Strings("red", "blue")).
		AddSubnode(ndb.SubnodeEntry{NID: ndb.NIDRecipientTable,
			DataBID: rData, SubnodeBID: rSub}).
		AddSubnode(ndb.SubnodeEntry{NID: ndb.NIDAttachmentTable,
			DataBID: aData, SubnodeBID: aSub}).
		AddSubnode(ndb.SubnodeEntry{NID: attachNID,
			DataBID: apcData, SubnodeBID: apcSub}))

	psttest.AddPC(b, lonelyNID, (&ltptest.PC{}).
		Add(pst.PidTagSubject, ltptest.String("\x01\u00e9No recipients")))
	return b.Build()
}

func openFile(t *testing.T) *pst.File {
	img := buildFile(t)
	f, err := pst.Open(img.Backend(), pst.Configuration{})
	assert.Nil(t, err)
	return f
}

func TestMessageStore(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	ms, err := f.MessageStore()
	assert.Nil(t, err)
	name, err := ms.DisplayName()
	assert.Nil(t, err)
	assert.Equal(t, name, "Personal Folders")
	nid, found, err := ms.IPMSubtree()
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, nid, ndb.NIDRootFolder)
	_, found, err = ms.Wastebasket()
	assert.Nil(t, err)
	assert.True(t, !found)
}

func TestFolders(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	root, err := f.RootFolder()
	assert.Nil(t, err)
	name, err := root.Name()
	assert.Nil(t, err)
	assert.Equal(t, name, "Top")

	subs, err := root.Subfolders()
	assert.Nil(t, err)
	assert.Equal(t, len(subs), 2)
	assert.Equal(t, subs[0].NID, inboxNID)
	assert.Equal(t, subs[1].NID, searchNID)

	inbox := subs[0]
	l, err := inbox.SubfolderNIDs()
	assert.Nil(t, err)
	assert.Equal(t, len(l), 0)
	count, err := inbox.GetInt32(pst.PidTagContentCount)
	assert.Nil(t, err)
	assert.Equal(t, count, int32(2))
	msgs, err := inbox.Messages()
	assert.Nil(t, err)
	assert.Equal(t, len(msgs), 2)
	assert.Equal(t, msgs[0].NID, messageNID)

	// search folder without tables is empty
	l, err = subs[1].MessageNIDs()
	assert.Nil(t, err)
	assert.Equal(t, len(l), 0)

	broken, err := f.Folder(brokenNID)
	assert.Nil(t, err)
	_, err = broken.SubfolderNIDs()
	assert.True(t, ndb.IsCorruptionError(err))
	_, err = broken.Messages()
	assert.True(t, ndb.IsCorruptionError(err))
}

func TestMessage(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	m, err := f.Message(messageNID)
	assert.Nil(t, err)
	subject, err := m.Subject()
	assert.Nil(t, err)
	assert.Equal(t, subject, "Re: Hello")
	class, err := m.Class()
	assert.Nil(t, err)
	assert.Equal(t, class, "IPM.Note")
	has, err := m.HasAttachments()
	assert.Nil(t, err)
	assert.True(t, has)

	v, found, err := m.GetNumericalProperty(pst.PidLidReminderSet)
	assert.Nil(t, err)
	assert.True(t, found)
	set, err := v.Bool()
	assert.Nil(t, err)
	assert.True(t, set)

	v, found, err = m.GetStringProperty(pst.PidNameKeywords)
	assert.Nil(t, err)
	assert.True(t, found)
	keywords, err := v.Strings()
	assert.Nil(t, err)
	assert.Equal(t, keywords, []string{"red", "blue"})

	// name not in the map
	_, found, err = m.GetNumericalProperty(pst.PidLidAppointmentStartWhole)
	assert.Nil(t, err)
	assert.True(t, !found)
	_, found, err = m.GetProperty(pst.PidTagBody)
	assert.Nil(t, err)
	assert.True(t, !found)

	props, err := m.Properties()
	assert.Nil(t, err)
	assert.Equal(t, len(props), 5)
}

func TestRecipients(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	m, err := f.Message(messageNID)
	assert.Nil(t, err)
	rl, err := m.Recipients()
	assert.Nil(t, err)
	assert.Equal(t, len(rl), 2)

	expected := []struct {
		name, email string
		rtype       int32
	}{
		{"Alice", "alice@example.com", pst.RecipientTo},
		{"Bob", "/o=x/cn=bob", pst.RecipientCc},
	}
	for i, e := range expected {
		r := rl[i]
		name, err := r.DisplayName()
		assert.Nil(t, err)
		assert.Equal(t, name, e.name)
		email, err := r.EmailAddress()
		assert.Nil(t, err)
		assert.Equal(t, email, e.email)
		rtype, err := r.Type()
		assert.Nil(t, err)
		assert.Equal(t, rtype, e.rtype)
	}

	lonely, err := f.Message(lonelyNID)
	assert.Nil(t, err)
	_, err = lonely.Recipients()
	assert.True(t, ndb.IsCorruptionError(err))
}

func TestAttachments(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	m, err := f.Message(messageNID)
	assert.Nil(t, err)
	al, err := m.Attachments()
	assert.Nil(t, err)
	assert.Equal(t, len(al), 1)
	a := al[0]
	assert.Equal(t, a.NID, attachNID)
	name, err := a.Filename()
	assert.Nil(t, err)
	assert.Equal(t, name, "notes.txt")
	data, found, err := a.Data()
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, data, attachData)

	lonely, err := f.Message(lonelyNID)
	assert.Nil(t, err)
	has, err := lonely.HasAttachments()
	assert.Nil(t, err)
	assert.True(t, !has)
	_, err = lonely.Attachments()
	assert.True(t, ndb.IsCorruptionError(err))
}

func TestSubjectMarker(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	lonely, err := f.Message(lonelyNID)
	assert.Nil(t, err)
	subject, err := lonely.Subject()
	assert.Nil(t, err)
	assert.Equal(t, subject, "No recipients")
}

func TestNodeNotFound(t *testing.T) {
	t.Parallel()
	f := openFile(t)
	defer f.Close()
	_, err := f.Message(ndb.MakeNID(ndb.NIDTypeNormalMessage, 0x999))
	assert.True(t, pst.IsNodeNotFound(err))
	_, err = f.Folder(ndb.MakeNID(ndb.NIDTypeNormalFolder, 0x999))
	assert.True(t, pst.IsNodeNotFound(err))
}

func TestOpenFile(t *testing.T) {
	t.Parallel()
	img := buildFile(t)
	path := filepath.Join(t.TempDir(), "test.pst")
	err := os.WriteFile(path, img.Data, 0644)
	assert.Nil(t, err)

	f, err := pst.OpenFile(path, pst.Configuration{})
	assert.Nil(t, err)
	assert.Equal(t, f.Directory().NodeCount(), 12)
	m, err := f.Message(messageNID)
	assert.Nil(t, err)
	subject, err := m.Subject()
	assert.Nil(t, err)
	assert.Equal(t, subject, "Re: Hello")
	assert.Nil(t, f.Close())

	err = os.WriteFile(path, img.Data[:100], 0644)
	assert.Nil(t, err)
	_, err = pst.OpenFile(path, pst.Configuration{})
	assert.True(t, ndb.IsFormatError(err))

	_, err = pst.OpenFile(filepath.Join(t.TempDir(), "missing"), pst.Configuration{})
	assert.NotNil(t, err)
}
