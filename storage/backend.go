/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Wed Mar 13 09:12:40 2019 mstenber
 * Edit time:     22 min
 *
 */

// storage package provides the byte level access to the container
// the rest of the decoder is built on. It has no notion of pages or
// blocks; it just reads N bytes at absolute offset.
package storage

import (
	"io"

	"github.com/pkg/errors"
)

// Backend is the shadow behind the throne; it actually reads the
// bytes. Reads are positioned (no shared cursor), so a Backend MUST
// be safe to call from multiple goroutines at once.
type Backend interface {
	// Close the backend
	Close() error

	// ReadData returns exactly size bytes starting at offset. Short
	// read is an error wrapping io.ErrUnexpectedEOF.
	ReadData(offset uint64, size int) ([]byte, error)

	// Size returns the total number of bytes available.
	Size() uint64
}

// checkRange validates offset+size against the backend size.
func checkRange(offset uint64, size int, total uint64) error {
	if size < 0 {
		return errors.Errorf("negative read size %d", size)
	}
	end := offset + uint64(size)
	if end < offset || end > total {
		return errors.Wrapf(io.ErrUnexpectedEOF,
			"read of %d bytes at %d beyond end %d", size, offset, total)
	}
	return nil
}
