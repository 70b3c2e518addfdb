/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:04:44 2017 mstenber
 * Last modified: Tue Mar 12 14:22:03 2019 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestConcatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ConcatBytes([]byte("foo"), []byte("bar")), []byte("foobar"))
}

func TestAlignUp(t *testing.T) {
	t.Parallel()
	assert.Equal(t, AlignUp(0, 64), 0)
	assert.Equal(t, AlignUp(1, 64), 64)
	assert.Equal(t, AlignUp(64, 64), 64)
	assert.Equal(t, AlignUp(65, 64), 128)
}

func TestMin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, IMin(3, 1, 2), 1)
}

func TestUTF16(t *testing.T) {
	t.Parallel()
	b := UTF16LEBytes("Héllo")
	assert.Equal(t, len(b), 10)
	assert.Equal(t, UTF16LEString(b), "Héllo")
	assert.Equal(t, UTF16LEString(append(b, 0, 0)), "Héllo")
}
