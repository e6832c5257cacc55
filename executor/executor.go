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

// Package executor implements the pluggable worker-thread abstractions a
// SchedulerQueue submits tasks to: a fixed ThreadPool, an
// ApplicationThread executor that queues tasks until RunPendingTasks runs
// them on the calling goroutine, a
// Delegating executor forwarding to a user sink, and a CurrentThread
// executor that flattens recursive scheduling into iteration.
package executor

// Executor runs a scheduled closure on some thread. Implementations must
// never hold a lock while invoking fn, since fn may re-enter the
// scheduler or executor.
type Executor interface {
	// Schedule arranges for fn to run, possibly asynchronously.
	Schedule(fn func())

	// Stop releases any resources (worker goroutines) the executor owns.
	// Pending scheduled tasks still run to completion; Stop only waits
	// for in-flight and already-queued tasks to finish.
	Stop()
}

// Queue is the minimal surface a SchedulerQueue exposes to an Executor:
// add_task's convenience default is "schedule a closure that calls
// RunNextTask".
type Queue interface {
	RunNextTask()
}

// AddTask is the executor-independent convenience every Executor
// implementation can use to submit a queue's next-task pop as a plain
// closure.
func AddTask(e Executor, q Queue) {
	e.Schedule(q.RunNextTask)
}
