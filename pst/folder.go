/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 21 13:20:11 2019 mstenber
 * Last modified: Fri Mar 22 14:02:27 2019 mstenber
 * Edit time:     39 min
 *
 */

package pst

import (
	"encoding/binary"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

type Folder struct {
	object
}

func (self *Folder) Name() (string, error) {
	return self.GetString(PidTagDisplayName)
}

// tableNIDs returns the row ids of folder's table as NIDs. Normal
// folders always have their tables; for others missing table means
// no entries.
func (self *Folder) tableNIDs(t ndb.NIDType) ([]ndb.NID, error) {
	tc, found, err := self.table(t)
	if err != nil {
		return nil, err
	}
	if !found {
		if self.NID.Type() == ndb.NIDTypeNormalFolder {
			return nil, ndb.Corruptf("folder", "%v has no table %x", self.NID, t)
		}
		return nil, nil
	}
	ids, err := tc.RowIDs()
	if err != nil {
		return nil, err
	}
	l := make([]ndb.NID, len(ids))
	for i, id := range ids {
		l[i] = ndb.NID(id)
	}
	return l, nil
}

// SubfolderNIDs lists the folders within this one.
func (self *Folder) SubfolderNIDs() ([]ndb.NID, error) {
	return self.tableNIDs(ndb.NIDTypeHierarchyTable)
}

// MessageNIDs lists the messages within this folder.
func (self *Folder) MessageNIDs() ([]ndb.NID, error) {
	return self.tableNIDs(ndb.NIDTypeContentsTable)
}

// Subfolders opens the folders within this one. Listed folder that
// does not exist is corruption.
func (self *Folder) Subfolders() ([]*Folder, error) {
	mlog.Printf2("pst/folder", "Subfolders %v", self.NID)
	nids, err := self.SubfolderNIDs()
	if err != nil {
		return nil, err
	}
	l := make([]*Folder, len(nids))
	for i, nid := range nids {
		f, err := self.file.Folder(nid)
		if IsNodeNotFound(err) {
			return nil, ndb.Corruptf("folder", "%v subfolder %v missing", self.NID, nid)
		}
		if err != nil {
			return nil, err
		}
		l[i] = f
	}
	return l, nil
}

// Messages opens the messages within this folder.
func (self *Folder) Messages() ([]*Message, error) {
	mlog.Printf2("pst/folder", "Messages %v", self.NID)
	nids, err := self.MessageNIDs()
	if err != nil {
		return nil, err
	}
	l := make([]*Message, len(nids))
	for i, nid := range nids {
		m, err := self.file.Message(nid)
		if IsNodeNotFound(err) {
			return nil, ndb.Corruptf("folder", "%v message %v missing", self.NID, nid)
		}
		if err != nil {
			return nil, err
		}
		l[i] = m
	}
	return l, nil
}

// MessageStore is the store-wide property context.
type MessageStore struct {
	object
}

const entryIDSize = 24

// entryIDNID decodes the NID from an entry id (flags 4, provider
// uid 16, nid 4).
func entryIDNID(v ltp.PropertyValue) (ndb.NID, bool) {
	if len(v.Data) != entryIDSize {
		return 0, false
	}
	return ndb.NID(binary.LittleEndian.Uint32(v.Data[20:])), true
}

func (self *MessageStore) entryIDFolder(tag ltp.PropertyTag) (ndb.NID, bool, error) {
	v, found, err := self.GetProperty(tag)
	if err != nil || !found {
		return 0, false, err
	}
	nid, ok := entryIDNID(v)
	if !ok {
		return 0, false, ndb.Corruptf("message store", "entry id %v size %d", tag, len(v.Data))
	}
	return nid, true, nil
}

// IPMSubtree returns the NID of the top of the personal folders.
func (self *MessageStore) IPMSubtree() (ndb.NID, bool, error) {
	return self.entryIDFolder(PidTagIpmSubTreeEntryId)
}

// Wastebasket returns the NID of the deleted items folder.
func (self *MessageStore) Wastebasket() (ndb.NID, bool, error) {
	return self.entryIDFolder(PidTagIpmWastebasketEntryId)
}

func (self *MessageStore) DisplayName() (string, error) {
	return self.GetString(PidTagDisplayName)
}
