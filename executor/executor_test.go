// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPoolRunsScheduledWork(t *testing.T) {
	p := NewThreadPool(2)
	defer p.Stop()

	var n int64
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Schedule(func() {
			atomic.AddInt64(&n, 1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled tasks")
	}
	assert.Equal(t, int64(10), atomic.LoadInt64(&n))
}

func TestApplicationThreadDefersUntilDrained(t *testing.T) {
	a := NewApplicationThread()
	ran := false
	a.Schedule(func() { ran = true })
	assert.False(t, ran)

	a.RunPendingTasks()
	assert.True(t, ran)
}

func TestDelegatingForwardsToSink(t *testing.T) {
	var got func()
	d := NewDelegating(func(fn func()) { got = fn })

	called := false
	d.Schedule(func() { called = true })
	require.NotNil(t, got)
	got()
	assert.True(t, called)
}

func TestCurrentThreadFlattensRecursion(t *testing.T) {
	c := NewCurrentThread()

	var order []int
	var schedule func(depth int)
	schedule = func(depth int) {
		order = append(order, depth)
		if depth < 3 {
			c.Schedule(func() { schedule(depth + 1) })
		}
	}

	c.Schedule(func() { schedule(0) })
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}
