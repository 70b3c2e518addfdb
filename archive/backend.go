/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 12:01:10 2019 mstenber
 * Last modified: Mon Mar 25 14:22:45 2019 mstenber
 * Edit time:     18 min
 *
 */

package archive

// Bucket is a separate key space within the backend.
type Bucket string

const (
	// BucketObject maps ObjectKey to encoded ObjectRecord.
	BucketObject Bucket = "object"

	// BucketContent maps sha256 of content to the content.
	BucketContent Bucket = "content"

	// BucketMeta holds archive-wide values (e.g. header summary).
	BucketMeta Bucket = "meta"
)

var Buckets = []Bucket{BucketObject, BucketContent, BucketMeta}

type BackendConfiguration struct {
	// Directory is where on-disk backends keep their files.
	Directory string
}

// Backend is key-value store the archive is written to. Values
// passed to Set and returned from Get are owned by the caller.
type Backend interface {
	// Init prepares the backend for use.
	Init(config BackendConfiguration) error

	Close() error

	// Get returns value of key in bucket; found is false if key is
	// not present.
	Get(bucket Bucket, key []byte) (value []byte, found bool, err error)

	Set(bucket Bucket, key, value []byte) error

	// Keys returns keys of bucket in ascending byte order.
	Keys(bucket Bucket) ([][]byte, error)
}
