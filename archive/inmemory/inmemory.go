/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 13:40:02 2019 mstenber
 * Last modified: Mon Mar 25 14:05:51 2019 mstenber
 * Edit time:     12 min
 *
 */

package inmemory

import (
	"sort"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/util"
)

// inMemoryBackend keeps everything in maps; useful for tests and
// dry runs.
type inMemoryBackend struct {
	buckets map[archive.Bucket]map[string][]byte
	lock    util.MutexLocked
}

var _ archive.Backend = &inMemoryBackend{}

func NewInMemoryBackend() archive.Backend {
	self := &inMemoryBackend{}
	self.buckets = make(map[archive.Bucket]map[string][]byte)
	for _, b := range archive.Buckets {
		self.buckets[b] = make(map[string][]byte)
	}
	return self
}

func (self *inMemoryBackend) Init(config archive.BackendConfiguration) error {
	return nil
}

func (self *inMemoryBackend) Close() error {
	return nil
}

func (self *inMemoryBackend) Get(bucket archive.Bucket, key []byte) ([]byte, bool, error) {
	defer self.lock.Locked()()
	v, ok := self.buckets[bucket][string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (self *inMemoryBackend) Set(bucket archive.Bucket, key, value []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("archive/inmemory/inmemory", "im.Set %s/%x (%d b)", bucket, key, len(value))
	self.buckets[bucket][string(key)] = append([]byte{}, value...)
	return nil
}

func (self *inMemoryBackend) Keys(bucket archive.Bucket) ([][]byte, error) {
	defer self.lock.Locked()()
	keys := make([]string, 0, len(self.buckets[bucket]))
	for k := range self.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	l := make([][]byte, len(keys))
	for i, k := range keys {
		l[i] = []byte(k)
	}
	return l, nil
}
