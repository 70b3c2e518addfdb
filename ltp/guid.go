/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 18 10:30:12 2019 mstenber
 * Last modified: Mon Mar 18 10:52:40 2019 mstenber
 * Edit time:     8 min
 *
 */

package ltp

import "github.com/google/uuid"

var (
	PS_MAPI           = uuid.MustParse("00020328-0000-0000-c000-000000000046")
	PS_PUBLIC_STRINGS = uuid.MustParse("00020329-0000-0000-c000-000000000046")
)

// swapGUID converts between the on-disk GUID layout (first three
// fields little-endian) and RFC 4122 byte order.
func swapGUID(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[3], src[2], src[1], src[0]
	dst[4], dst[5] = src[5], src[4]
	dst[6], dst[7] = src[7], src[6]
	copy(dst[8:16], src[8:16])
}

// GUIDFromBytes decodes 16-byte on-disk GUID.
func GUIDFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	swapGUID(u[:], b)
	return u
}

// GUIDBytes encodes the GUID in on-disk form.
func GUIDBytes(u uuid.UUID) []byte {
	b := make([]byte, 16)
	swapGUID(b, u[:])
	return b
}
