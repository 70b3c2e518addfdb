/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 13:02:51 2019 mstenber
 * Last modified: Tue Mar 26 10:12:33 2019 mstenber
 * Edit time:     67 min
 *
 */

// archive package stores decoded container objects in a key-value
// backend. Objects are stored under their ObjectKey, and large
// property values are stored once by their content (sha256) id.
// Every value goes through the configured codec, with the key as
// additional data.
package archive

import (
	"bytes"

	"github.com/fingon/go-pstndb/codec"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
)

const DefaultContentThreshold = 1024

type Archive struct {
	Backend Backend

	// Codec transforms values stored in the backend; by default
	// they are stored as-is.
	Codec codec.Codec

	// ContentThreshold is the size above which property values
	// are stored as content.
	ContentThreshold int
}

func (self Archive) Init() *Archive {
	if self.Codec == nil {
		self.Codec = codec.CodecChain{}.Init()
	}
	if self.ContentThreshold == 0 {
		self.ContentThreshold = DefaultContentThreshold
	}
	return &self
}

func (self *Archive) Close() error {
	return self.Backend.Close()
}

func ContentID(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func (self *Archive) set(bucket Bucket, key, value []byte) error {
	enc, err := self.Codec.EncodeBytes(value, key)
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s/%x", bucket, key)
	}
	return self.Backend.Set(bucket, key, enc)
}

func (self *Archive) get(bucket Bucket, key []byte) ([]byte, bool, error) {
	enc, found, err := self.Backend.Get(bucket, key)
	if err != nil || !found {
		return nil, found, err
	}
	value, err := self.Codec.DecodeBytes(enc, key)
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to decode %s/%x", bucket, key)
	}
	return value, true, nil
}

// PutContent stores data (if not already present) and returns its
// id.
func (self *Archive) PutContent(data []byte) (id []byte, err error) {
	id = ContentID(data)
	_, found, err := self.Backend.Get(BucketContent, id)
	if err != nil || found {
		return
	}
	mlog.Printf2("archive/archive", "PutContent %x (%d b)", id, len(data))
	err = self.set(BucketContent, id, data)
	return
}

// Content returns data stored with PutContent.
func (self *Archive) Content(id []byte) ([]byte, bool, error) {
	data, found, err := self.get(BucketContent, id)
	if err != nil || !found {
		return nil, found, err
	}
	if !bytes.Equal(ContentID(data), id) {
		return nil, false, errors.Errorf("content %x checksum mismatch", id)
	}
	return data, true, nil
}

func (self *Archive) PutObject(r *ObjectRecord) error {
	mlog.Printf2("archive/archive", "PutObject %v %v", r.Kind, r.Key)
	b, err := r.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return self.set(BucketObject, r.Key.Bytes(), b)
}

func (self *Archive) Object(key ObjectKey) (*ObjectRecord, bool, error) {
	b, found, err := self.get(BucketObject, key.Bytes())
	if err != nil || !found {
		return nil, found, err
	}
	r := &ObjectRecord{}
	_, err = r.UnmarshalMsg(b)
	if err != nil {
		return nil, false, errors.Wrapf(err, "invalid object %v", key)
	}
	if r.Key != key {
		return nil, false, errors.Errorf("object %v stored as %v", r.Key, key)
	}
	return r, true, nil
}

// ObjectKeys returns keys of all stored objects in key order.
func (self *Archive) ObjectKeys() ([]ObjectKey, error) {
	keys, err := self.Backend.Keys(BucketObject)
	if err != nil {
		return nil, err
	}
	l := make([]ObjectKey, len(keys))
	for i, k := range keys {
		l[i], err = ObjectKeyFromBytes(k)
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

// PropertyData returns the value of the property, fetching it from
// content bucket if needed.
func (self *Archive) PropertyData(p PropertyRecord) ([]byte, error) {
	if len(p.ContentID) == 0 {
		return p.Data, nil
	}
	data, found, err := self.Content(p.ContentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Errorf("content %x of %x missing", p.ContentID, p.Tag)
	}
	return data, nil
}

func (self *Archive) SetMeta(name string, value []byte) error {
	return self.set(BucketMeta, []byte(name), value)
}

func (self *Archive) Meta(name string) ([]byte, bool, error) {
	return self.get(BucketMeta, []byte(name))
}
