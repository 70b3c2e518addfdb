/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 14:02:12 2019 mstenber
 * Last modified: Mon Mar 25 14:48:30 2019 mstenber
 * Edit time:     26 min
 *
 */

package badger

import (
	"github.com/dgraph-io/badger"
	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/pkg/errors"
)

// badgerBackend provides on-disk storage.
//
// - key bucket name + '/' + key -> value
type badgerBackend struct {
	db *badger.DB
}

var _ archive.Backend = &badgerBackend{}

func NewBadgerBackend() archive.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config archive.BackendConfiguration) error {
	opts := badger.DefaultOptions
	opts.Dir = config.Directory
	opts.ValueDir = config.Directory
	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrapf(err, "badger.Open %s", config.Directory)
	}
	self.db = db
	return nil
}

func (self *badgerBackend) Close() error {
	return self.db.Close()
}

func prefix(bucket archive.Bucket) []byte {
	return append([]byte(bucket), '/')
}

func bucketKey(bucket archive.Bucket, key []byte) []byte {
	return append(prefix(bucket), key...)
}

func (self *badgerBackend) Get(bucket archive.Bucket, key []byte) (v []byte, found bool, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(bucketKey(bucket, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = i.ValueCopy(nil)
		found = err == nil
		return err
	})
	return
}

func (self *badgerBackend) Set(bucket archive.Bucket, key, value []byte) error {
	mlog.Printf2("archive/badger/badger", "bad.Set %s/%x (%d b)", bucket, key, len(value))
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bucketKey(bucket, key), value)
	})
}

func (self *badgerBackend) Keys(bucket archive.Bucket) (l [][]byte, err error) {
	p := prefix(bucket)
	err = self.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			k := it.Item().Key()
			l = append(l, append([]byte{}, k[len(p):]...))
		}
		return nil
	})
	return
}
