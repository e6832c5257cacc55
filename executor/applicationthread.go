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

// ApplicationThread queues scheduled closures instead of running them on
// any worker; they run only when RunPendingTasks (or Stop) is called.
// Nothing in the graph package calls RunPendingTasks: WaitUntilIdle,
// WaitUntilDone and WaitForObservedOutput do not drain this queue. Used
// when num_threads == 0.
type ApplicationThread struct {
	mu      sync.Mutex
	pending []func()
}

func NewApplicationThread() *ApplicationThread {
	return &ApplicationThread{}
}

func (a *ApplicationThread) Schedule(fn func()) {
	a.mu.Lock()
	a.pending = append(a.pending, fn)
	a.mu.Unlock()
}

// RunPendingTasks drains and runs every closure queued so far, in order.
// Stop calls it; the graph package does not.
func (a *ApplicationThread) RunPendingTasks() {
	a.mu.Lock()
	tasks := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

func (a *ApplicationThread) Stop() {
	a.RunPendingTasks()
}
