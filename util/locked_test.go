/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:24:51 2018 mstenber
 * Last modified: Tue Mar 12 14:33:27 2019 mstenber
 * Edit time:     9 min
 *
 */

package util

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestMutexLockedMap(t *testing.T) {
	t.Parallel()
	var lock MutexLocked
	m := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				unlock := lock.Locked()
				m[fmt.Sprintf("%d/%d", i, j%10)]++
				unlock()
			}
		}()
	}
	wg.Wait()
	defer lock.Locked()()
	assert.Equal(t, len(m), 80)
	for _, v := range m {
		assert.Equal(t, v, 10)
	}
}
