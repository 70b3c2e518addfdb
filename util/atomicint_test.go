/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 26 10:45:02 2019 mstenber
 * Last modified: Tue Mar 26 10:49:31 2019 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestAtomicInt(t *testing.T) {
	t.Parallel()
	var ai AtomicInt
	assert.Equal(t, ai.GetInt(), 0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ai.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, ai.Get(), int64(1000))
	assert.Equal(t, ai.Add(-1000), int64(0))
	ai.Set(32)
	assert.Equal(t, ai.GetInt(), 32)
}
