/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 13:40:02 2019 mstenber
 * Last modified: Thu Mar 21 12:10:45 2019 mstenber
 * Edit time:     54 min
 *
 */

package ltp

import (
	"encoding/binary"
	"fmt"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/util"
	"github.com/google/uuid"
)

const (
	PidTagNameidBucketCount  = PropertyID(0x0001)
	PidTagNameidStreamGuid   = PropertyID(0x0002)
	PidTagNameidStreamEntry  = PropertyID(0x0003)
	PidTagNameidStreamString = PropertyID(0x0004)

	// Named properties are allocated ids from here up.
	NamedPropertyBase = PropertyID(0x8000)

	nameidEntrySize = 8
	guidSize        = 16

	guidIndexNone          = 0
	guidIndexMAPI          = 1
	guidIndexPublicStrings = 2
	guidIndexStreamBase    = 3
)

// NamedProperty is single entry of the name-to-id map.
type NamedProperty struct {
	Set        uuid.UUID
	IsString   bool
	ID         uint32
	Name       string
	PropertyID PropertyID
}

func (self NamedProperty) String() string {
	if self.IsString {
		return fmt.Sprintf("%v/%q=%x", self.Set, self.Name, uint16(self.PropertyID))
	}
	return fmt.Sprintf("%v/%x=%x", self.Set, self.ID, uint16(self.PropertyID))
}

type numericalKey struct {
	set uuid.UUID
	id  uint32
}

type stringKey struct {
	set  uuid.UUID
	name string
}

// NameToIDMap resolves named properties to the property ids used in
// this container. It is loaded on first use.
type NameToIDMap struct {
	dir *ndb.Directory

	lock      util.MutexLocked
	loaded    bool
	entries   []NamedProperty
	numerical map[numericalKey]PropertyID
	strings   map[stringKey]PropertyID
}

func NewNameToIDMap(dir *ndb.Directory) *NameToIDMap {
	return &NameToIDMap{dir: dir}
}

func nameidCorruptf(format string, args ...interface{}) error {
	return ndb.Corruptf("name-to-id map", format, args...)
}

// ensureLoaded decodes the map once; failures are not remembered,
// so every call on a broken map decodes (and fails) again.
func (self *NameToIDMap) ensureLoaded() error {
	defer self.lock.Locked()()
	if self.loaded {
		return nil
	}
	err := self.load()
	if err != nil {
		self.entries = nil
		return err
	}
	self.loaded = true
	return nil
}

func (self *NameToIDMap) stream(pc *PropertyContext, id PropertyID) ([]byte, error) {
	v, found, err := pc.Get(PropertyTag{ID: id, Type: PtypBinary})
	if err != nil || !found {
		return nil, err
	}
	return v.Data, nil
}

func (self *NameToIDMap) load() error {
	self.numerical = make(map[numericalKey]PropertyID)
	self.strings = make(map[stringKey]PropertyID)
	e, ok := self.dir.Node(ndb.NIDNameToIDMap)
	if !ok {
		mlog.Printf2("ltp/nameid", "load: no map node")
		return nil
	}
	pc, err := OpenPropertyContext(self.dir, e.DataBID, e.SubnodeBID)
	if err != nil {
		return err
	}
	guids, err := self.stream(pc, PidTagNameidStreamGuid)
	if err != nil {
		return err
	}
	if len(guids)%guidSize != 0 {
		return nameidCorruptf("guid stream size %d", len(guids))
	}
	entries, err := self.stream(pc, PidTagNameidStreamEntry)
	if err != nil {
		return err
	}
	if len(entries)%nameidEntrySize != 0 {
		return nameidCorruptf("entry stream size %d", len(entries))
	}
	strs, err := self.stream(pc, PidTagNameidStreamString)
	if err != nil {
		return err
	}
	le := binary.LittleEndian
	for i := 0; i < len(entries); i += nameidEntrySize {
		b := entries[i:]
		np := NamedProperty{ID: le.Uint32(b)}
		wGuid := le.Uint16(b[4:])
		np.IsString = wGuid&1 != 0
		np.PropertyID = NamedPropertyBase + PropertyID(le.Uint16(b[6:]))
		switch gi := int(wGuid >> 1); gi {
		case guidIndexNone:
		case guidIndexMAPI:
			np.Set = PS_MAPI
		case guidIndexPublicStrings:
			np.Set = PS_PUBLIC_STRINGS
		default:
			ofs := (gi - guidIndexStreamBase) * guidSize
			if ofs+guidSize > len(guids) {
				return nameidCorruptf("guid index %d out of range", gi)
			}
			np.Set = GUIDFromBytes(guids[ofs : ofs+guidSize])
		}
		if np.IsString {
			ofs := int(np.ID)
			if ofs+4 > len(strs) {
				return nameidCorruptf("string offset %d out of range", ofs)
			}
			n := int(le.Uint32(strs[ofs:]))
			if n > len(strs)-ofs-4 || n%2 != 0 {
				return nameidCorruptf("string at %d length %d", ofs, n)
			}
			np.Name = util.UTF16LEString(strs[ofs+4 : ofs+4+n])
			self.strings[stringKey{np.Set, np.Name}] = np.PropertyID
		} else {
			self.numerical[numericalKey{np.Set, np.ID}] = np.PropertyID
		}
		self.entries = append(self.entries, np)
	}
	mlog.Printf2("ltp/nameid", "load: %d entries", len(self.entries))
	return nil
}

// GetPropertyID resolves numerical named property. Ids below the
// named range in PS_MAPI are ordinary property ids.
func (self *NameToIDMap) GetPropertyID(set uuid.UUID, id uint32) (PropertyID, bool, error) {
	if set == PS_MAPI && id < uint32(NamedPropertyBase) {
		return PropertyID(id), true, nil
	}
	err := self.ensureLoaded()
	if err != nil {
		return 0, false, err
	}
	pid, ok := self.numerical[numericalKey{set, id}]
	mlog.Printf2("ltp/nameid", "GetPropertyID %v %x => %x %v", set, id, pid, ok)
	return pid, ok, nil
}

// GetPropertyIDByName resolves string named property.
func (self *NameToIDMap) GetPropertyIDByName(set uuid.UUID, name string) (PropertyID, bool, error) {
	err := self.ensureLoaded()
	if err != nil {
		return 0, false, err
	}
	pid, ok := self.strings[stringKey{set, name}]
	mlog.Printf2("ltp/nameid", "GetPropertyIDByName %v %q => %x %v", set, name, pid, ok)
	return pid, ok, nil
}

// Entries returns all entries in stream order.
func (self *NameToIDMap) Entries() ([]NamedProperty, error) {
	err := self.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return self.entries, nil
}
