/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 14:40:10 2019 mstenber
 * Last modified: Tue Mar 26 15:32:48 2019 mstenber
 * Edit time:     34 min
 *
 */

// psttest package builds message stores, folders and messages on
// top of ndbtest and ltptest.
package psttest

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/ltp/ltptest"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/ndb/ndbtest"
	"github.com/fingon/go-pstndb/pst"
)

// EntryID encodes entry id pointing at nid.
func EntryID(nid ndb.NID) []byte {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint32(b[20:], uint32(nid))
	return b
}

func AddPC(b *ndbtest.Builder, nid ndb.NID, pc *ltptest.PC) {
	dataBID, subBID := pc.Build(b)
	b.AddNode(ndb.NodeEntry{NID: nid, DataBID: dataBID, SubnodeBID: subBID})
}

func AddStore(b *ndbtest.Builder, name string) {
	AddPC(b, ndb.NIDMessageStore, (&ltptest.PC{}).
		Add(pst.PidTagDisplayName, ltptest.String(name)).
		Add(pst.PidTagIpmSubTreeEntryId, EntryID(ndb.NIDRootFolder)))
}

// AddFolder adds folder with hierarchy and contents tables listing
// the given children.
func AddFolder(b *ndbtest.Builder, nid ndb.NID, name string, folders, messages []ndb.NID) {
	AddPC(b, nid, (&ltptest.PC{}).
		Add(pst.PidTagDisplayName, ltptest.String(name)).
		Add(pst.PidTagContentCount, ltptest.Int32(int32(len(messages)))).
		Add(pst.PidTagSubfolders, ltptest.Bool(len(folders) > 0)))
	for _, t := range []struct {
		nidType ndb.NIDType
		rows    []ndb.NID
	}{
		{ndb.NIDTypeHierarchyTable, folders},
		{ndb.NIDTypeContentsTable, messages},
	} {
		tc := &ltptest.TC{Columns: []ltp.PropertyTag{pst.PidTagDisplayName}}
		for _, row := range t.rows {
			tc.AddRow(ltp.RowID(row), nil)
		}
		dataBID, subBID := tc.Build(b)
		b.AddNode(ndb.NodeEntry{NID: nid.WithType(t.nidType),
			DataBID: dataBID, SubnodeBID: subBID, ParentNID: nid})
	}
}

type Recipient struct {
	Name, Address string
	Type          int32
}

type Attachment struct {
	Filename string
	Data     []byte
}

// Message describes simple message; PC is used as the base for its
// properties if set.
type Message struct {
	Subject     string
	Recipients  []Recipient
	Attachments []Attachment
	PC          *ltptest.PC
}

// AddMessage adds message with recipient table, and attachment
// table and attachments if it has any.
func AddMessage(b *ndbtest.Builder, nid ndb.NID, m Message) {
	pc := m.PC
	if pc == nil {
		pc = &ltptest.PC{}
	}
	flags := int32(pst.MSGFLAG_READ)
	if len(m.Attachments) > 0 {
		flags |= pst.MSGFLAG_HASATTACH
	}
	pc.Add(pst.PidTagMessageClass, ltptest.String("IPM.Note")).
		Add(pst.PidTagSubject, ltptest.String(m.Subject)).
		Add(pst.PidTagMessageFlags, ltptest.Int32(flags))

	rtc := &ltptest.TC{Columns: []ltp.PropertyTag{pst.PidTagDisplayName,
		pst.PidTagSmtpAddress, pst.PidTagEmailAddress, pst.PidTagRecipientType}}
	for i, r := range m.Recipients {
		values := map[ltp.PropertyID][]byte{
			pst.PidTagDisplayName.ID:   ltptest.String(r.Name),
			pst.PidTagSmtpAddress.ID:   ltptest.String(r.Address),
			pst.PidTagRecipientType.ID: ltptest.Int32(r.Type),
		}
		rtc.AddRow(ltp.RowID(i+1), values)
	}
	dataBID, subBID := rtc.Build(b)
	pc.AddSubnode(ndb.SubnodeEntry{NID: ndb.NIDRecipientTable,
		DataBID: dataBID, SubnodeBID: subBID})

	if len(m.Attachments) > 0 {
		atc := &ltptest.TC{Columns: []ltp.PropertyTag{pst.PidTagAttachSize}}
		for i, a := range m.Attachments {
			anid := ndb.MakeNID(ndb.NIDTypeAttachment, uint32(i+1))
			atc.AddRow(ltp.RowID(anid), map[ltp.PropertyID][]byte{
				pst.PidTagAttachSize.ID: ltptest.Int32(int32(len(a.Data))),
			})
			dataBID, subBID := (&ltptest.PC{}).
				Add(pst.PidTagAttachLongFilename, ltptest.String(a.Filename)).
				Add(pst.PidTagAttachMethod, ltptest.Int32(1)).
				Add(pst.PidTagAttachDataBinary, a.Data).
				Build(b)
			pc.AddSubnode(ndb.SubnodeEntry{NID: anid,
				DataBID: dataBID, SubnodeBID: subBID})
		}
		dataBID, subBID := atc.Build(b)
		pc.AddSubnode(ndb.SubnodeEntry{NID: ndb.NIDAttachmentTable,
			DataBID: dataBID, SubnodeBID: subBID})
	}
	AddPC(b, nid, pc)
}
