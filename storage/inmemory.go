/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Wed Mar 13 09:40:44 2019 mstenber
 * Edit time:     12 min
 *
 */

package storage

import "github.com/fingon/go-pstndb/mlog"

// inMemoryBackend serves reads from a byte slice. The slice is
// treated as immutable; callers get copies.
type inMemoryBackend struct {
	b []byte
}

var _ Backend = &inMemoryBackend{}

func NewInMemoryBackend(b []byte) Backend {
	return &inMemoryBackend{b: b}
}

func (self *inMemoryBackend) Close() error {
	return nil
}

func (self *inMemoryBackend) ReadData(offset uint64, size int) ([]byte, error) {
	mlog.Printf2("storage/inmemory", "im.ReadData %d@%d", size, offset)
	if err := checkRange(offset, size, self.Size()); err != nil {
		return nil, err
	}
	b := make([]byte, size)
	copy(b, self.b[offset:])
	return b, nil
}

func (self *inMemoryBackend) Size() uint64 {
	return uint64(len(self.b))
}
