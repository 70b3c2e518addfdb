/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 14:31:18 2017 mstenber
 * Last modified: Mon Mar 11 10:04:51 2019 mstenber
 * Edit time:     27 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stvp/assert"
)

func TestMlog(t *testing.T) {
	add := func(pattern string, outputted bool) {
		t.Run(pattern, func(t *testing.T) {
			var b bytes.Buffer
			logger := log.New(&b, "", 0)
			defer SetLogger(logger)()
			defer SetGoroutineIds(false)()
			defer SetPattern(pattern)()
			Printf("foo %s", "bar")
			assert.Equal(t, len(b.Bytes()) > 0, outputted)
			if outputted {
				assert.Equal(t, b.String(), "foo bar\n")
			}
		})
	}
	add("", false)
	add("zzzglorb", false)
	add("mlog_test", true)
}

func TestPrintf2Tag(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetGoroutineIds(false)()
	defer SetPattern("^ndb/")()
	Printf2("ltp/pc", "skipped")
	Printf2("ndb/block", "block %d", 42)
	assert.Equal(t, b.String(), "block 42\n")
}

func TestMLogRecursion(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetGoroutineIds(false)()
	defer SetPattern(".")()
	Printf("d0")
	func() {
		Printf("d1")
		func() {
			Printf("d2")
		}()
		Printf("D1")
	}()
	Printf("D0")
	assert.Equal(t, b.String(), "d0\n.d1\n..d2\n.D1\nD0\n")
}

func TestPanicf(t *testing.T) {
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer func() {
		r := recover()
		assert.Equal(t, r, "broken 7")
		assert.Equal(t, b.String(), "broken 7\n")
	}()
	Panicf("broken %d", 7)
}

func BenchmarkMlogDisabled(b *testing.B) {
	defer SetPattern("")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("ndb/block", "x %d", i)
	}
}

func BenchmarkMlogNotMatching(b *testing.B) {
	defer SetPattern("zzglorb")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("ndb/block", "x")
	}
}
