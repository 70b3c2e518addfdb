/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:44:41 2018 mstenber
 * Last modified: Wed Mar 13 09:34:05 2019 mstenber
 * Edit time:     41 min
 *
 */

package storage

import (
	"io"
	"os"

	"github.com/fingon/go-pstndb/mlog"
	"github.com/pkg/errors"
)

// readerAtBackend serves reads from any io.ReaderAt; ReadAt is the
// positioned read primitive, so no locking is needed here.
type readerAtBackend struct {
	r      io.ReaderAt
	size   uint64
	closer io.Closer
}

var _ Backend = &readerAtBackend{}

// NewReaderAtBackend wraps io.ReaderAt of known size.
func NewReaderAtBackend(r io.ReaderAt, size int64) Backend {
	return &readerAtBackend{r: r, size: uint64(size)}
}

// NewFileBackend opens the given file read-only.
func NewFileBackend(path string) (Backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "unable to stat %s", path)
	}
	mlog.Printf2("storage/file", "NewFileBackend %s (%d bytes)", path, fi.Size())
	return &readerAtBackend{r: f, size: uint64(fi.Size()), closer: f}, nil
}

func (self *readerAtBackend) Close() error {
	if self.closer == nil {
		return nil
	}
	return self.closer.Close()
}

func (self *readerAtBackend) ReadData(offset uint64, size int) ([]byte, error) {
	mlog.Printf2("storage/file", "ra.ReadData %d@%d", size, offset)
	if err := checkRange(offset, size, self.size); err != nil {
		return nil, err
	}
	b := make([]byte, size)
	n, err := self.r.ReadAt(b, int64(offset))
	if n == size {
		// ReadAt may return io.EOF together with full read at end
		return b, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, errors.Wrapf(err, "short read %d/%d at %d", n, size, offset)
}

func (self *readerAtBackend) Size() uint64 {
	return self.size
}
