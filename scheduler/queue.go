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

// Package scheduler implements the SchedulerQueue priority ordering and
// the Scheduler global coordinator: idle detection, source layering,
// throttling and cancellation.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/calcd/calcd/executor"
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/node"
)

// Kind distinguishes an Open task (node, no input set) from a Process
// task (node, prepared input set).
type Kind int

const (
	KindOpen Kind = iota
	KindProcess
)

func (k Kind) String() string {
	if k == KindOpen {
		return "Open"
	}
	return "Process"
}

// Item is one runnable unit of scheduler work.
type Item struct {
	Kind Kind
	Node *node.Node
	Set  handler.InputSet
}

// less implements spec.md §4.5's ordering: Open before Process; among
// Open, lower node id first; among Process, non-source before source,
// higher id first among non-source, and among sources, lower layer then
// lower SourceProcessOrder then lower id.
func less(a, b Item) bool {
	if a.Kind != b.Kind {
		return a.Kind == KindOpen
	}
	if a.Kind == KindOpen {
		return a.Node.ID < b.Node.ID
	}

	aSrc, bSrc := a.Node.IsSource, b.Node.IsSource
	if aSrc != bSrc {
		return !aSrc
	}
	if !aSrc {
		return a.Node.ID > b.Node.ID
	}
	if a.Node.SourceLayer != b.Node.SourceLayer {
		return a.Node.SourceLayer < b.Node.SourceLayer
	}
	if order := a.Node.SourceProcessOrder(); order != b.Node.SourceProcessOrder() {
		return order < b.Node.SourceProcessOrder()
	}
	return a.Node.ID < b.Node.ID
}

type itemHeap []Item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)         { *h = append(*h, x.(Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Result reports how a single task invocation turned out, for the
// Scheduler's RecordError/shutdown bookkeeping.
type Result struct {
	Item     Item
	Stopped  bool
	Err      error
	Duration time.Duration
}

// Queue is one SchedulerQueue: a priority heap of runnable items bound to
// a single Executor. The default queue and each named executor's queue
// are independent Queue instances sharing the same priority discipline.
type Queue struct {
	mu        sync.Mutex
	items     itemHeap
	ex        executor.Executor
	running   bool
	executing int

	onResult func(Result)
	onIdle   func()
}

// NewQueue returns a Queue bound to ex. onResult is invoked (off the
// Queue's lock) after every task completes; onIdle is invoked whenever
// the queue transitions from non-idle to idle (no items, nothing
// executing).
func NewQueue(ex executor.Executor, onResult func(Result), onIdle func()) *Queue {
	return &Queue{ex: ex, onResult: onResult, onIdle: onIdle}
}

// AddItem enqueues item and, if the queue is running, submits one task
// to the executor to drain it (and everything else already queued).
func (q *Queue) AddItem(item Item) {
	q.mu.Lock()
	heap.Push(&q.items, item)
	running := q.running
	q.mu.Unlock()

	if running {
		q.ex.Schedule(q.RunNextTask)
	}
}

// SetRunning flips the queue's running flag. Setting it to true flushes
// one executor submission per currently queued item (a fresh Resume after
// Pause); surplus submissions find the queue empty and return.
func (q *Queue) SetRunning(running bool) {
	q.mu.Lock()
	was := q.running
	q.running = running
	n := len(q.items)
	q.mu.Unlock()

	if running && !was {
		for i := 0; i < n; i++ {
			q.ex.Schedule(q.RunNextTask)
		}
	}
}

func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// NumTasksWaiting returns the number of items not yet popped for
// execution.
func (q *Queue) NumTasksWaiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// NumTasksExecuting returns the number of tasks currently inside a node
// invocation.
func (q *Queue) NumTasksExecuting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.executing
}

// IsIdle reports whether the queue has nothing queued and nothing
// executing.
func (q *Queue) IsIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.executing == 0
}

// RunNextTask pops the highest-priority item and invokes its node. This
// is the closure an Executor runs; it must never be called directly by
// anything other than an Executor (or a test).
func (q *Queue) RunNextTask() {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	item := heap.Pop(&q.items).(Item)
	q.executing++
	q.mu.Unlock()

	var res Result
	res.Item = item
	start := time.Now()
	switch item.Kind {
	case KindOpen:
		res.Err = item.Node.Open()
	case KindProcess:
		res.Stopped, res.Err = item.Node.Process(item.Set)
	}
	res.Duration = time.Since(start)

	q.mu.Lock()
	q.executing--
	becameIdle := len(q.items) == 0 && q.executing == 0
	q.mu.Unlock()

	if q.onResult != nil {
		q.onResult(res)
	}
	if becameIdle && q.onIdle != nil {
		q.onIdle()
	}
}
