/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 21 11:02:33 2019 mstenber
 * Last modified: Fri Mar 22 13:10:48 2019 mstenber
 * Edit time:     57 min
 *
 */

package pst

import (
	"strings"
	"unicode/utf8"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

type Message struct {
	object
}

// Subject returns the subject without the normalized prefix marker.
func (self *Message) Subject() (string, error) {
	s, err := self.GetString(PidTagSubject)
	if err != nil {
		return "", err
	}
	// \x01 followed by prefix length character
	if strings.HasPrefix(s, "\x01") && len(s) >= 2 {
		_, n := utf8.DecodeRuneInString(s[1:])
		s = s[1+n:]
	}
	return s, nil
}

func (self *Message) Class() (string, error) {
	return self.GetString(PidTagMessageClass)
}

// HasAttachments checks the message flags.
func (self *Message) HasAttachments() (bool, error) {
	flags, err := self.GetInt32(PidTagMessageFlags)
	return flags&MSGFLAG_HASATTACH != 0, err
}

// Recipients returns recipients of the message in table order.
// Every message has recipient table; its absence is corruption.
func (self *Message) Recipients() ([]*Recipient, error) {
	mlog.Printf2("pst/message", "Recipients %v", self.NID)
	tc, found, err := self.subnodeTable(ndb.NIDTypeRecipientTable)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ndb.Corruptf("message", "%v has no recipient table", self.NID)
	}
	ids, err := tc.RowIDs()
	if err != nil {
		return nil, err
	}
	l := make([]*Recipient, len(ids))
	for i, id := range ids {
		r := &Recipient{RowID: id, table: tc}
		r.properties = properties{file: self.file, source: r}
		l[i] = r
	}
	return l, nil
}

// Attachments returns attachments of the message in table order.
// Missing attachment table, or attachment rows without the
// attachment object, are corruption; see HasAttachments for
// messages that have none.
func (self *Message) Attachments() ([]*Attachment, error) {
	mlog.Printf2("pst/message", "Attachments %v", self.NID)
	tc, found, err := self.subnodeTable(ndb.NIDTypeAttachmentTable)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ndb.Corruptf("message", "%v has no attachment table", self.NID)
	}
	ids, err := tc.RowIDs()
	if err != nil {
		return nil, err
	}
	l := make([]*Attachment, len(ids))
	for i, id := range ids {
		nid := ndb.NID(id)
		e, found, err := self.file.dir.FindSubnode(self.entry.SubnodeBID, nid)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ndb.Corruptf("message", "%v attachment %v missing", self.NID, nid)
		}
		pc, err := ltp.OpenPropertyContext(self.file.dir, e.DataBID, e.SubnodeBID)
		if err != nil {
			return nil, err
		}
		l[i] = &Attachment{NID: nid, pc: pc,
			properties: properties{file: self.file, source: pc}}
	}
	return l, nil
}

// Recipient is single row of message's recipient table.
type Recipient struct {
	properties
	RowID ltp.RowID
	table *ltp.TableContext
}

func (self *Recipient) Get(tag ltp.PropertyTag) (ltp.PropertyValue, bool, error) {
	return self.table.Get(self.RowID, tag)
}

// Properties returns all set cells of the recipient row.
func (self *Recipient) Properties() ([]ltp.Property, error) {
	return self.table.GetAll(self.RowID)
}

func (self *Recipient) DisplayName() (string, error) {
	return self.GetString(PidTagDisplayName)
}

// EmailAddress prefers the SMTP address if present.
func (self *Recipient) EmailAddress() (string, error) {
	s, err := self.GetString(PidTagSmtpAddress)
	if err != nil || s != "" {
		return s, err
	}
	return self.GetString(PidTagEmailAddress)
}

func (self *Recipient) Type() (int32, error) {
	return self.GetInt32(PidTagRecipientType)
}

// Attachment is property context stored as subnode of message.
type Attachment struct {
	properties
	NID ndb.NID
	pc  *ltp.PropertyContext
}

func (self *Attachment) Properties() ([]ltp.Property, error) {
	return self.pc.All()
}

// Filename prefers the long filename.
func (self *Attachment) Filename() (string, error) {
	s, err := self.GetString(PidTagAttachLongFilename)
	if err != nil || s != "" {
		return s, err
	}
	return self.GetString(PidTagAttachFilename)
}

// Data returns the binary content of the attachment; found is false
// for attachments without binary data (e.g. embedded messages).
func (self *Attachment) Data() ([]byte, bool, error) {
	v, found, err := self.GetProperty(PidTagAttachDataBinary)
	if err != nil || !found {
		return nil, found, err
	}
	return v.Data, true, nil
}
