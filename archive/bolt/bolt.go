/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 13:52:20 2019 mstenber
 * Last modified: Mon Mar 25 14:31:40 2019 mstenber
 * Edit time:     21 min
 *
 */

package bolt

import (
	"path/filepath"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/pkg/errors"
	bbolt "go.etcd.io/bbolt"
)

// boltBackend provides on-disk storage; each archive bucket is a
// bbolt bucket of the same name.
type boltBackend struct {
	db *bbolt.DB
}

var _ archive.Backend = &boltBackend{}

func NewBoltBackend() archive.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config archive.BackendConfiguration) error {
	path := filepath.Join(config.Directory, "bbolt.db")
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return errors.Wrapf(err, "bbolt.Open %s", path)
	}
	self.db = db
	return db.Update(func(tx *bbolt.Tx) error {
		for _, b := range archive.Buckets {
			_, err := tx.CreateBucketIfNotExists([]byte(b))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (self *boltBackend) Close() error {
	return self.db.Close()
}

func (self *boltBackend) Get(bucket archive.Bucket, key []byte) (v []byte, found bool, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		bv := tx.Bucket([]byte(bucket)).Get(key)
		if bv != nil {
			// bv is valid only within the transaction
			v = append([]byte{}, bv...)
			found = true
		}
		return nil
	})
	return
}

func (self *boltBackend) Set(bucket archive.Bucket, key, value []byte) error {
	mlog.Printf2("archive/bolt/bolt", "bbolt.Set %s/%x (%d b)", bucket, key, len(value))
	return self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put(key, value)
	})
}

func (self *boltBackend) Keys(bucket archive.Bucket) (l [][]byte, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
			l = append(l, append([]byte{}, k...))
			return nil
		})
	})
	return
}
