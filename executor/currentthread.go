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

import "sync"

// CurrentThread runs every scheduled closure inline on the calling
// goroutine. A naive inline executor recurses unboundedly when a
// scheduled closure itself calls Schedule again (a node callback
// re-entering the queue from inside its own invocation); this flattens
// that recursion into iteration with a local deque, mirroring the
// original's defense. Intended for single-goroutine use, matching the
// "current thread" executor's premise.
type CurrentThread struct {
	mu     sync.Mutex
	active *deque
}

type deque struct {
	tasks []func()
}

func NewCurrentThread() *CurrentThread {
	return &CurrentThread{}
}

// Schedule runs fn inline. If fn is already running inside a Schedule
// call on this executor and calls Schedule again, the nested closure is
// appended to the in-progress deque instead of recursing, and drained by
// the outermost call's loop.
func (c *CurrentThread) Schedule(fn func()) {
	c.mu.Lock()
	if c.active != nil {
		c.active.tasks = append(c.active.tasks, fn)
		c.mu.Unlock()
		return
	}
	q := &deque{tasks: []func(){fn}}
	c.active = q
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(q.tasks) == 0 {
			c.active = nil
			c.mu.Unlock()
			return
		}
		next := q.tasks[0]
		q.tasks = q.tasks[1:]
		c.mu.Unlock()

		next()
	}
}

func (c *CurrentThread) Stop() {}
