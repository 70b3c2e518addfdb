/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 10:40:12 2019 mstenber
 * Last modified: Tue Mar 26 10:44:50 2019 mstenber
 * Edit time:     4 min
 *
 */

package util

import "sync/atomic"

// AtomicInt is counter that can be updated from multiple
// goroutines, e.g. statistics of parallel export.
type AtomicInt int64

func (self *AtomicInt) Get() int64 {
	return atomic.LoadInt64((*int64)(self))
}

func (self *AtomicInt) GetInt() int {
	return int(self.Get())
}

// Add adds value and returns the new value.
func (self *AtomicInt) Add(value int64) int64 {
	return atomic.AddInt64((*int64)(self), value)
}

func (self *AtomicInt) Set(value int64) {
	atomic.StoreInt64((*int64)(self), value)
}
