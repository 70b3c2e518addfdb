/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 21 09:30:55 2019 mstenber
 * Last modified: Fri Mar 22 11:02:40 2019 mstenber
 * Edit time:     48 min
 *
 */

// pst package is the object level view of a PST container: message
// store, folders, messages with their recipients and attachments.
package pst

import (
	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/storage"
	"github.com/pkg/errors"
)

// ErrNodeNotFound is returned when the requested object is not in
// the container at all.
var ErrNodeNotFound = errors.New("node not found")

type Configuration struct {
	Limits ndb.Limits
}

// File is an opened container.
type File struct {
	backend      storage.Backend
	closeBackend bool
	dir          *ndb.Directory
	names        *ltp.NameToIDMap
}

// Open opens container stored in the backend. The backend is not
// closed by File.Close.
func Open(backend storage.Backend, config Configuration) (*File, error) {
	dir, err := ndb.Open(backend, config.Limits)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("pst/file", "Open: %d nodes", dir.NodeCount())
	return &File{backend: backend, dir: dir,
		names: ltp.NewNameToIDMap(dir)}, nil
}

// OpenFile opens container file at path.
func OpenFile(path string, config Configuration) (*File, error) {
	backend, err := storage.NewFileBackend(path)
	if err != nil {
		return nil, err
	}
	self, err := Open(backend, config)
	if err != nil {
		backend.Close()
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	self.closeBackend = true
	return self, nil
}

func (self *File) Close() error {
	if self.closeBackend {
		self.closeBackend = false
		return self.backend.Close()
	}
	return nil
}

func (self *File) Header() *ndb.Header {
	return self.dir.Header
}

func (self *File) Directory() *ndb.Directory {
	return self.dir
}

func (self *File) NameToIDMap() *ltp.NameToIDMap {
	return self.names
}

func (self *File) node(nid ndb.NID) (ndb.NodeEntry, error) {
	e, ok := self.dir.Node(nid)
	if !ok {
		return e, errors.Wrapf(ErrNodeNotFound, "%v", nid)
	}
	return e, nil
}

func (self *File) openObject(nid ndb.NID) (*object, error) {
	e, err := self.node(nid)
	if err != nil {
		return nil, err
	}
	pc, err := ltp.OpenPropertyContext(self.dir, e.DataBID, e.SubnodeBID)
	if err != nil {
		return nil, errors.Wrapf(err, "%v", nid)
	}
	return &object{properties: properties{file: self, source: pc},
		NID: nid, entry: e, pc: pc}, nil
}

// MessageStore returns the message store object.
func (self *File) MessageStore() (*MessageStore, error) {
	o, err := self.openObject(ndb.NIDMessageStore)
	if err != nil {
		return nil, err
	}
	return &MessageStore{object: *o}, nil
}

// Folder returns the folder with the given NID.
func (self *File) Folder(nid ndb.NID) (*Folder, error) {
	o, err := self.openObject(nid)
	if err != nil {
		return nil, err
	}
	return &Folder{object: *o}, nil
}

// RootFolder returns the root of the folder hierarchy.
func (self *File) RootFolder() (*Folder, error) {
	return self.Folder(ndb.NIDRootFolder)
}

// Message returns the message with the given NID.
func (self *File) Message(nid ndb.NID) (*Message, error) {
	o, err := self.openObject(nid)
	if err != nil {
		return nil, err
	}
	return &Message{object: *o}, nil
}

// IsNodeNotFound checks whether err is (wrapped) ErrNodeNotFound.
func IsNodeNotFound(err error) bool {
	return errors.Cause(err) == ErrNodeNotFound
}
