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

package graph

import (
	"time"

	"github.com/calcd/calcd/executor"
	"github.com/calcd/calcd/gerrors"
)

// idlePollInterval is how often WaitUntilIdle re-checks every queue for a
// graph with no source nodes, which has no other completion signal to
// block on.
const idlePollInterval = 5 * time.Millisecond

// WaitUntilDone blocks until the current run terminates and returns the
// error it terminated with, if any.
func (g *Graph) WaitUntilDone() error {
	g.mu.Lock()
	sched := g.sched
	g.mu.Unlock()
	if sched == nil {
		return gerrors.FailedPreconditionf("StartRun has not been called")
	}
	<-sched.Done()
	return sched.Err()
}

// WaitUntilIdle blocks until every node's queue is simultaneously empty and
// not executing, for a graph with no source nodes, where "done" can mean
// "caught up" rather than "terminated". It also returns as soon as the run
// terminates. A graph with any source node has no well-defined idle point
// (a source may always produce more), so this fails FailedPrecondition
// instead of blocking forever.
func (g *Graph) WaitUntilIdle() error {
	g.mu.Lock()
	sched := g.sched
	hasSource := g.hasSourceLocked()
	g.mu.Unlock()
	if sched == nil {
		return gerrors.FailedPreconditionf("StartRun has not been called")
	}
	if hasSource {
		return gerrors.FailedPreconditionf("WaitUntilIdle is only valid for a graph with no source nodes")
	}

	for {
		if sched.IsIdle() {
			return nil
		}
		select {
		case <-sched.Done():
			return sched.Err()
		case <-time.After(idlePollInterval):
		}
	}
}

// HasError reports whether the current or most recently completed run has
// recorded an error.
func (g *Graph) HasError() bool {
	g.mu.Lock()
	sched := g.sched
	g.mu.Unlock()
	return sched != nil && sched.Err() != nil
}

// Cancel requests the current run stop as soon as every in-flight node
// invocation returns; it does not interrupt work already executing.
func (g *Graph) Cancel() {
	g.mu.Lock()
	sched := g.sched
	g.mu.Unlock()
	if sched != nil {
		sched.Cancel()
	}
}

// SetErrorCallback registers fn to be invoked, synchronously on whichever
// goroutine records the error, the first time any error is recorded during
// a run. Call before StartRun;
// if StartRun has already built the Scheduler, fn is also wired in
// immediately.
func (g *Graph) SetErrorCallback(fn func(error)) {
	g.mu.Lock()
	g.errCallback = fn
	sched := g.sched
	g.mu.Unlock()
	if sched != nil {
		sched.SetErrorCallback(fn)
	}
}

// SetExecutor overrides or adds the named executor a node can select via
// its own executor config field. Call before StartRun.
func (g *Graph) SetExecutor(name string, ex executor.Executor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.namedExecs == nil {
		g.namedExecs = make(map[string]executor.Executor)
	}
	g.namedExecs[name] = ex
}
