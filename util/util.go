/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:03:12 2017 mstenber
 * Last modified: Tue Mar 12 14:20:41 2019 mstenber
 * Edit time:     19 min
 *
 */

package util

import (
	"encoding/binary"
	"unicode/utf16"
)

func ConcatBytes(bytes ...[]byte) []byte {
	nl := 0
	for _, b := range bytes {
		nl += len(b)
	}
	r := make([]byte, 0, nl)
	for _, b := range bytes {
		r = append(r, b...)
	}
	return r
}

// AlignUp rounds n up to the next multiple of align (power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func IMin(i int, ints ...int) int {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

// UTF16LEString decodes little-endian UTF-16 bytes; a trailing odd
// byte and terminating NULs are dropped.
func UTF16LEString(b []byte) string {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	for len(u) > 0 && u[len(u)-1] == 0 {
		u = u[:len(u)-1]
	}
	return string(utf16.Decode(u))
}

// UTF16LEBytes is the inverse of UTF16LEString (without terminator).
func UTF16LEBytes(s string) []byte {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u))
	for i, v := range u {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}
