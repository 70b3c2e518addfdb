/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 10:20:44 2019 mstenber
 * Last modified: Tue Mar 26 13:55:02 2019 mstenber
 * Edit time:     83 min
 *
 */

package archive

import (
	"context"
	"strconv"

	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/pst"
	"github.com/fingon/go-pstndb/util"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	MetaVersion   = "version"
	MetaNodeCount = "nodes"

	DefaultWorkers = 4
)

type ExportStats struct {
	Folders, Messages, Recipients, Attachments util.AtomicInt
}

// Exporter copies the message store, the folder hierarchy and the
// messages of File to Archive. Folders are walked by single
// goroutine; messages are exported by Workers goroutines.
type Exporter struct {
	File    *pst.File
	Archive *Archive
	Workers int
	Stats   ExportStats
}

func (self Exporter) Init() *Exporter {
	if self.Workers <= 0 {
		self.Workers = DefaultWorkers
	}
	return &self
}

func (self *Exporter) propertyRecords(props []ltp.Property) ([]PropertyRecord, error) {
	l := make([]PropertyRecord, len(props))
	for i, p := range props {
		r := PropertyRecord{Tag: p.Tag.Uint32()}
		if len(p.Value.Data) > self.Archive.ContentThreshold {
			id, err := self.Archive.PutContent(p.Value.Data)
			if err != nil {
				return nil, err
			}
			r.ContentID = id
		} else {
			r.Data = p.Value.Data
		}
		l[i] = r
	}
	return l, nil
}

type propertyLister interface {
	Properties() ([]ltp.Property, error)
}

func (self *Exporter) putObject(kind ObjectKind, key ObjectKey, o propertyLister, fill func(r *ObjectRecord) error) error {
	props, err := o.Properties()
	if err != nil {
		return err
	}
	r := &ObjectRecord{Kind: kind, Key: key}
	r.Properties, err = self.propertyRecords(props)
	if err != nil {
		return err
	}
	if fill != nil {
		err = fill(r)
		if err != nil {
			return err
		}
	}
	return self.Archive.PutObject(r)
}

func nidsToUint32(l ...[]ndb.NID) []uint32 {
	var r []uint32
	for _, nids := range l {
		for _, nid := range nids {
			r = append(r, uint32(nid))
		}
	}
	return r
}

func (self *Exporter) exportStore() error {
	ms, err := self.File.MessageStore()
	if err != nil {
		return err
	}
	err = self.putObject(ObjectKindStore, ObjectKey{NID: uint32(ms.NID)}, ms, nil)
	if err != nil {
		return err
	}
	h := self.File.Header()
	err = self.Archive.SetMeta(MetaVersion, []byte(strconv.Itoa(int(h.Version))))
	if err != nil {
		return err
	}
	nodes := self.File.Directory().NodeCount()
	return self.Archive.SetMeta(MetaNodeCount, []byte(strconv.Itoa(nodes)))
}

// walkFolders exports folders depth first from the root, and
// passes each message (once) to the channel.
func (self *Exporter) walkFolders(ctx context.Context, messages chan<- ndb.NID) error {
	seen := make(map[ndb.NID]bool)
	stack := []ndb.NID{ndb.NIDRootFolder}
	seen[ndb.NIDRootFolder] = true
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		nid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		mlog.Printf2("archive/export", "walkFolders %v", nid)
		f, err := self.File.Folder(nid)
		if err != nil {
			return errors.Wrapf(err, "folder %v", nid)
		}
		folders, err := f.SubfolderNIDs()
		if err != nil {
			return errors.Wrapf(err, "folder %v", nid)
		}
		msgs, err := f.MessageNIDs()
		if err != nil {
			return errors.Wrapf(err, "folder %v", nid)
		}
		err = self.putObject(ObjectKindFolder, ObjectKey{NID: uint32(nid)}, f,
			func(r *ObjectRecord) error {
				r.Children = nidsToUint32(folders, msgs)
				return nil
			})
		if err != nil {
			return err
		}
		self.Stats.Folders.Add(1)
		for i := len(folders) - 1; i >= 0; i-- {
			if !seen[folders[i]] {
				seen[folders[i]] = true
				stack = append(stack, folders[i])
			}
		}
		for _, m := range msgs {
			if seen[m] {
				continue
			}
			seen[m] = true
			select {
			case messages <- m:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (self *Exporter) exportMessage(nid ndb.NID) error {
	mlog.Printf2("archive/export", "exportMessage %v", nid)
	m, err := self.File.Message(nid)
	if err != nil {
		return err
	}
	rl, err := m.Recipients()
	if err != nil {
		return err
	}
	var al []*pst.Attachment
	has, err := m.HasAttachments()
	if err != nil {
		return err
	}
	if has {
		al, err = m.Attachments()
		if err != nil {
			return err
		}
	}
	for _, a := range al {
		err = self.putObject(ObjectKindAttachment,
			ObjectKey{Parent: uint32(nid), NID: uint32(a.NID)}, a, nil)
		if err != nil {
			return err
		}
		self.Stats.Attachments.Add(1)
	}
	err = self.putObject(ObjectKindMessage, ObjectKey{NID: uint32(nid)}, m,
		func(r *ObjectRecord) error {
			for _, recipient := range rl {
				props, err := recipient.Properties()
				if err != nil {
					return err
				}
				row := RowRecord{ID: uint32(recipient.RowID)}
				row.Properties, err = self.propertyRecords(props)
				if err != nil {
					return err
				}
				r.Recipients = append(r.Recipients, row)
			}
			for _, a := range al {
				r.Children = append(r.Children, uint32(a.NID))
			}
			return nil
		})
	if err != nil {
		return err
	}
	self.Stats.Messages.Add(1)
	self.Stats.Recipients.Add(int64(len(rl)))
	return nil
}

// Export copies everything reachable from the root folder. Failure
// of any object aborts the whole export.
func (self *Exporter) Export(ctx context.Context) error {
	mlog.Printf2("archive/export", "Export workers:%d", self.Workers)
	err := self.exportStore()
	if err != nil {
		return errors.Wrap(err, "message store")
	}
	g, ctx := errgroup.WithContext(ctx)
	messages := make(chan ndb.NID)
	g.Go(func() error {
		defer close(messages)
		return self.walkFolders(ctx, messages)
	})
	for i := 0; i < self.Workers; i++ {
		g.Go(func() error {
			for nid := range messages {
				err := self.exportMessage(nid)
				if err != nil {
					return errors.Wrapf(err, "message %v", nid)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
