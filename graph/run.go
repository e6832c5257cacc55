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
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/node"
	"github.com/calcd/calcd/scheduler"
	"github.com/calcd/calcd/sidepacket"
	"github.com/calcd/calcd/timestamp"
)

// StartRun runs the packet-generator graph's per-run phase against
// extraSidePackets, binds the result to every node, builds the Scheduler and
// starts it. It must be called after Initialize, once per run; a Graph is
// not reusable across overlapping runs.
func (g *Graph) StartRun(extraSidePackets *sidepacket.Manager) error {
	if extraSidePackets == nil {
		extraSidePackets = sidepacket.NewManager()
	}
	runSides, err := g.genGraph.RunPerRunPhase(g.baseSides, extraSidePackets)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.runSides = runSides
	for _, n := range g.nodes {
		n.Sides = runSides
	}
	for name := range g.inputClosed {
		delete(g.inputClosed, name)
	}
	nodes := append([]*node.Node(nil), g.nodes...)
	g.started = true
	g.mu.Unlock()

	var sources, nonSources []*node.Node
	for _, n := range nodes {
		if n.IsSource {
			sources = append(sources, n)
		} else {
			nonSources = append(nonSources, n)
		}
	}
	layers := scheduler.SortLayers(sources)

	g.sched = scheduler.New(g.defaultExec, g.namedExecs, layers, g, g.allGraphInputsClosed, g.handleLayerActive, g.handleSourceReady, g.handleNodeDone)
	g.mu.Lock()
	if g.errCallback != nil {
		g.sched.SetErrorCallback(g.errCallback)
	}
	g.mu.Unlock()

	for _, n := range nonSources {
		g.sched.SubmitOpen(n)
	}
	g.sched.Start()
	if len(sources) == 0 {
		g.sched.Poke()
	}
	go g.closeAllOnDone(g.sched, nodes)
	return nil
}

// closeAllOnDone waits for sched to terminate and then closes every node
// that is not already Closed: natural completion closes a node as soon as
// its handler reports it exhausted, but Cancel or an error can terminate
// the scheduler while a node with no natural end (e.g. one fed by a
// never-closed graph input) is still Opened or Idle, and every node's
// Close callback is still owed in that case.
func (g *Graph) closeAllOnDone(sched *scheduler.Scheduler, nodes []*node.Node) {
	<-sched.Done()
	cause := sched.Err()
	for _, n := range nodes {
		if n.State() == node.Closed {
			continue
		}
		if err := n.Close(cause); err != nil {
			sched.RecordError(err)
		}
	}
}

// Run is StartRun followed by closing every graph input and waiting for
// completion, the convenience path for a graph driven entirely by packet
// sources and side packets rather than pushed input.
func (g *Graph) Run(extraSidePackets *sidepacket.Manager) error {
	if err := g.StartRun(extraSidePackets); err != nil {
		return err
	}
	if err := g.CloseAllPacketSources(); err != nil {
		return err
	}
	return g.WaitUntilDone()
}

// Unthrottle implements scheduler.Unthrottler: it raises the max queue size
// of every currently full input stream by one and reports whether it raised
// any.
func (g *Graph) Unthrottle() bool {
	return g.unthrottleOne()
}

func (g *Graph) allGraphInputsClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name := range g.graphInputs {
		if !g.inputClosed[name] {
			return false
		}
	}
	return true
}

// handleLayerActive is the Scheduler's onLayerActive hook: it submits Open
// for every newly activated source node.
func (g *Graph) handleLayerActive(layer []*node.Node) {
	for _, n := range layer {
		g.sched.SubmitOpen(n)
	}
}

// handleSourceReady is the Scheduler's onSourceReady hook: it submits the
// next Process call for a source whose previous Open or Process just
// completed successfully. A source calculator stamps its own output
// timestamps via Packet.At, so the InputSet's own Timestamp is a mere
// placeholder.
func (g *Graph) handleSourceReady(n *node.Node) {
	g.sched.SubmitProcess(n, handler.InputSet{Timestamp: timestamp.Unstarted})
}

// handleNodeDone is the Scheduler's onNodeDone hook: after any node's Open
// or Process invocation, it closes every source en masse on a non-source
// Stop, and always re-pumps every node's handler for newly ready input sets
// or handler-driven closure.
func (g *Graph) handleNodeDone(res scheduler.Result) {
	n := res.Item.Node
	if res.Item.Kind == scheduler.KindProcess {
		g.mu.Lock()
		delete(g.busy, n.ID)
		g.mu.Unlock()
	}
	if !n.IsSource && res.Stopped {
		for _, src := range g.sched.StopSources() {
			g.sched.NotifySourceClosed(src)
			if err := src.Close(g.sched.Err()); err != nil {
				g.sched.RecordError(err)
			}
		}
	}
	g.requestPump()
}

// requestPump runs pumpOnce to a fixed point, coalescing concurrent callers
// into a single extra pass rather than running them interleaved: handler
// state (NextInputSet/Done) is not safe to poll from two goroutines at once.
func (g *Graph) requestPump() {
	g.pumpMu.Lock()
	if g.pumpRunning {
		g.pumpDirty = true
		g.pumpMu.Unlock()
		return
	}
	g.pumpRunning = true
	g.pumpMu.Unlock()

	for {
		progressed := g.pumpOnce()

		g.pumpMu.Lock()
		dirty := g.pumpDirty
		g.pumpDirty = false
		if !dirty && !progressed {
			g.pumpRunning = false
			g.pumpMu.Unlock()
			return
		}
		g.pumpMu.Unlock()
	}
}

// pumpOnce scans every node once, submitting one Process task for the next
// ready input set its handler reports (if any) and closing any node whose
// handler considers it exhausted. It reports whether it closed at least
// one node, since closing propagates final outputs that may ready a
// downstream node that only a further pass would see.
func (g *Graph) pumpOnce() bool {
	g.mu.Lock()
	nodes := append([]*node.Node(nil), g.nodes...)
	sched := g.sched
	g.mu.Unlock()

	progressed := false
	for _, n := range nodes {
		switch n.State() {
		case node.Uninitialized, node.Prepared, node.Closed:
			continue
		}

		// At most one Process in flight per node at a time: a node's own
		// Process calls are ordered in the SchedulerQueue by node id alone,
		// not by timestamp, so ever having two queued or executing at once
		// risks running them out of order. busy is set here, synchronously
		// with the submit decision, and cleared by handleNodeDone once
		// that invocation's result arrives.
		g.mu.Lock()
		alreadyBusy := g.busy[n.ID]
		g.mu.Unlock()
		if !alreadyBusy {
			if set, ok := n.Handler.NextInputSet(); ok {
				g.mu.Lock()
				g.busy[n.ID] = true
				g.mu.Unlock()
				sched.SubmitProcess(n, set)
			}
		}

		if n.Handler.Done() && n.State() != node.Closed {
			if err := n.Close(sched.Err()); err != nil {
				sched.RecordError(err)
			}
			progressed = true
		}
	}
	return progressed
}

// unthrottleOne raises the max queue size of every full input stream by one
// and reports whether it found any.
func (g *Graph) unthrottleOne() bool {
	g.mu.Lock()
	ins := append([]*instream.Manager(nil), g.allInputs...)
	g.mu.Unlock()

	raised := false
	for _, in := range ins {
		if in.IsFull() {
			in.SetMaxQueueSize(in.MaxQueueSize() + 1)
			raised = true
		}
	}
	return raised
}
