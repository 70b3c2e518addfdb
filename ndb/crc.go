/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 09:45:12 2019 mstenber
 * Last modified: Thu Mar 14 10:20:55 2019 mstenber
 * Edit time:     12 min
 *
 */

package ndb

import "hash/crc32"

// ComputeCRC continues the container CRC from crc over p. It uses
// the IEEE polynomial table, but without the pre- and
// post-inversion of the usual CRC-32; initial value is 0.
func ComputeCRC(crc uint32, p []byte) uint32 {
	return ^crc32.Update(^crc, crc32.IEEETable, p)
}

// ComputeSig produces the 16-bit signature stored in page and block
// trailers.
func ComputeSig(ib IB, bid BID) uint16 {
	x := uint64(ib) ^ uint64(bid)
	return uint16(uint32(x)>>16) ^ uint16(x)
}
