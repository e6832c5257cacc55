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

package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/executor"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/internal/fasttime"
	"github.com/calcd/calcd/logger"
	"github.com/calcd/calcd/node"
)

// RunState is the Scheduler's own state machine, independent of any single
// Node's State.
type RunState int

const (
	NotStarted RunState = iota
	Running
	Paused
	Cancelling
	Terminated
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Cancelling:
		return "Cancelling"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Unthrottler is implemented by the owning Graph: Unthrottle raises the
// max queue size of one or more full input streams and reports whether it
// changed anything, per the "stop as soon as any unthrottle succeeds"
// policy.
type Unthrottler interface {
	Unthrottle() bool
}

var (
	activeQueuesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Name:      "scheduler_active_queues",
		Help:      "Number of SchedulerQueues currently running.",
	})
	throttledGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Name:      "scheduler_throttled_sources",
		Help:      "Number of source/graph-input keys currently marked throttled.",
	})
	unthrottleEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "scheduler_unthrottle_total",
		Help:      "Number of successful unthrottle passes.",
	})
	nodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "scheduler_node_errors_total",
		Help:      "Number of node Open/Process/Close invocations that returned a non-Stop error.",
	})
)

// Scheduler is the single coordinator driving every Node through Open,
// Process and Close: it owns the default SchedulerQueue plus one per named
// Executor, detects idleness, activates source layers, tracks throttling
// and carries the run to completion or cancellation.
type Scheduler struct {
	mu    sync.Mutex
	state RunState

	defaultQueue *Queue
	namedQueues  map[string]*Queue
	allQueues    []*Queue

	sourceLayers [][]*node.Node
	nextLayer    int
	active       map[int]*node.Node

	fullCounts   map[int]int
	throttled    map[int]bool
	pendingReady map[int]*node.Node
	unthrottle   Unthrottler

	allGraphInputsClosed func() bool
	onLayerActive        func([]*node.Node)
	onSourceReady        func(*node.Node)
	onNodeDone           func(Result)

	errs             gerrors.Combiner
	errCallback      func(error)
	errCallbackFired bool
	handlingIdle     bool

	done chan struct{}
	doneOnce sync.Once

	runStart     time.Time
	callbackTime time.Duration
}

// New returns a NotStarted Scheduler. defaultExec drives the default
// queue; namedExecs maps executor names (as declared by node.ExecutorName)
// to their own Executor, each getting an independent Queue. sources is
// every source node, pre-grouped into ascending layers (sourceLayers[0] is
// activated first). unthrottle is consulted whenever every active source
// is throttled and no progress is otherwise possible. onLayerActive, if
// non-nil, is called (off the Scheduler's lock) with the set of source
// nodes each time a new layer becomes active, so the Graph can start
// pumping them. onSourceReady, if non-nil, is called (off the Scheduler's
// lock) after a source node's Open or Process invocation completes without
// stopping or erroring, so the Graph can submit its next Process.
// onNodeDone, if non-nil, is called (off the Scheduler's lock) after every
// node's Open or Process invocation completes, source or not, regardless of
// outcome, so the Graph can re-poll every node's handler for newly ready
// input sets, close nodes whose handler is done, and react to a non-source
// Stop by shutting down every source.
func New(defaultExec executor.Executor, namedExecs map[string]executor.Executor, sourceLayers [][]*node.Node, unthrottle Unthrottler, allGraphInputsClosed func() bool, onLayerActive func([]*node.Node), onSourceReady func(*node.Node), onNodeDone func(Result)) *Scheduler {
	s := &Scheduler{
		state:                NotStarted,
		namedQueues:          make(map[string]*Queue, len(namedExecs)),
		sourceLayers:         sourceLayers,
		active:               make(map[int]*node.Node),
		fullCounts:           make(map[int]int),
		throttled:            make(map[int]bool),
		pendingReady:         make(map[int]*node.Node),
		unthrottle:           unthrottle,
		allGraphInputsClosed: allGraphInputsClosed,
		onLayerActive:        onLayerActive,
		onSourceReady:        onSourceReady,
		onNodeDone:           onNodeDone,
		done:                 make(chan struct{}),
	}
	s.defaultQueue = NewQueue(defaultExec, s.onResult, s.onQueueIdle)
	s.allQueues = append(s.allQueues, s.defaultQueue)
	for name, ex := range namedExecs {
		q := NewQueue(ex, s.onResult, s.onQueueIdle)
		s.namedQueues[name] = q
		s.allQueues = append(s.allQueues, q)
	}
	return s
}

// queueFor returns the Queue a node's items are submitted to.
func (s *Scheduler) queueFor(n *node.Node) *Queue {
	if n.ExecutorName == "" {
		return s.defaultQueue
	}
	if q, ok := s.namedQueues[n.ExecutorName]; ok {
		return q
	}
	return s.defaultQueue
}

// Start transitions NotStarted -> Running, starts every queue and
// activates the first source layer.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return
	}
	s.state = Running
	s.runStart = fasttime.Now()
	s.mu.Unlock()

	activeQueuesGauge.Set(float64(len(s.allQueues)))
	for _, q := range s.allQueues {
		q.SetRunning(true)
	}

	s.mu.Lock()
	activated, layer := s.activateNextLayerLocked()
	s.mu.Unlock()
	if activated && s.onLayerActive != nil {
		s.onLayerActive(layer)
	}
}

// SubmitOpen enqueues an Open task for n on its bound queue.
func (s *Scheduler) SubmitOpen(n *node.Node) {
	s.queueFor(n).AddItem(Item{Kind: KindOpen, Node: n})
}

// SubmitProcess enqueues a Process task for n with the prepared set.
func (s *Scheduler) SubmitProcess(n *node.Node, set handler.InputSet) {
	s.queueFor(n).AddItem(Item{Kind: KindProcess, Node: n, Set: set})
}

// SetRunning pauses or resumes every queue. A no-op once Terminated.
func (s *Scheduler) SetRunning(running bool) {
	s.mu.Lock()
	if s.state == Terminated {
		s.mu.Unlock()
		return
	}
	if running {
		s.state = Running
	} else {
		s.state = Paused
	}
	s.mu.Unlock()

	for _, q := range s.allQueues {
		q.SetRunning(running)
	}
}

// Cancel marks the run Cancelled and moves to Cancelling: queues keep
// running so already-queued work drains, but HandleIdle will terminate as
// soon as the queues go idle.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if s.state == Terminated {
		s.mu.Unlock()
		return
	}
	s.errs.Add(gerrors.CancelledStatus("scheduler cancelled"))
	s.state = Cancelling
	s.mu.Unlock()

	for _, q := range s.allQueues {
		q.SetRunning(true)
	}
	s.checkIdle()
}

// State returns the current RunState.
func (s *Scheduler) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns a channel closed once the scheduler reaches Terminated.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Err returns the combined error recorded across every node invocation and
// cancellation, or nil if the run finished cleanly.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.Combined()
}

// IsIdle reports whether every queue currently has nothing queued and
// nothing executing, for a graph with no source nodes whose only
// termination signal otherwise would be Done.
func (s *Scheduler) IsIdle() bool {
	s.mu.Lock()
	queues := append([]*Queue(nil), s.allQueues...)
	s.mu.Unlock()

	for _, q := range queues {
		if !q.IsIdle() {
			return false
		}
	}
	return true
}

// Overhead returns the fraction of total run time spent inside node
// callbacks run through the queues (Open/Process), for time-accounting
// diagnostics. Close runs outside the queues and is not counted.
func (s *Scheduler) Overhead() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := fasttime.Now().Sub(s.runStart)
	if total <= 0 {
		return 0
	}
	return float64(s.callbackTime) / float64(total)
}

// ActiveSources returns the source nodes currently eligible to run. The
// owning Graph is responsible for pumping each one (submitting its next
// Process item once the previous one completes) for as long as it appears
// here; Scheduler only decides which layer is active, not when to submit
// an individual source's next packet.
func (s *Scheduler) ActiveSources() []*node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*node.Node, 0, len(s.active))
	for _, n := range s.active {
		out = append(out, n)
	}
	return out
}

// Poke re-runs idle detection even though no queue just transitioned.
// Needed once after Start for a graph with no source nodes at all: no
// queue ever goes through a busy->idle transition to trigger it on its
// own.
func (s *Scheduler) Poke() { s.checkIdle() }

// NotifySourceClosed removes a source node from the active set once it has
// transitioned to Closed (either it returned Stop or its last input/side
// closed), and triggers idle handling so the next layer can be activated.
func (s *Scheduler) NotifySourceClosed(n *node.Node) {
	s.mu.Lock()
	delete(s.active, n.ID)
	delete(s.pendingReady, n.ID)
	s.mu.Unlock()
	s.checkIdle()
}

// RecordError folds err into the combined error returned by Err and
// re-checks idleness, for errors the Graph detects outside a queued task: a
// node's Close call, or input validation on AddPacketToInputStream. A nil
// or Stop error is ignored.
func (s *Scheduler) RecordError(err error) {
	if err == nil || gerrors.IsStop(err) {
		return
	}
	nodeErrors.Inc()
	s.addError(err)
	s.checkIdle()
}

// SetErrorCallback registers fn to be invoked exactly once, off the
// Scheduler's lock, the first time any error is recorded.
func (s *Scheduler) SetErrorCallback(fn func(error)) {
	s.mu.Lock()
	s.errCallback = fn
	s.mu.Unlock()
}

// addError folds err into the combined error and fires errCallback the
// first time this happens.
func (s *Scheduler) addError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.errs.Add(err)
	fire := !s.errCallbackFired
	s.errCallbackFired = true
	cb := s.errCallback
	s.mu.Unlock()

	if fire && cb != nil {
		cb(err)
	}
}

// StopSources prevents any further source layer from activating and returns
// the source nodes currently active, for the Graph to close. Called when a
// non-source node returns Stop: per spec, that initiates graph-wide source
// shutdown rather than merely closing the one node that returned it.
func (s *Scheduler) StopSources() []*node.Node {
	s.mu.Lock()
	s.nextLayer = len(s.sourceLayers)
	out := make([]*node.Node, 0, len(s.active))
	for _, n := range s.active {
		out = append(out, n)
	}
	s.mu.Unlock()

	s.checkIdle()
	return out
}

// NotifyFullnessChanged is called by the owning Graph once per (stream,
// upstream-source-key) pair whenever an input stream crosses its max queue
// size boundary. A source/graph-input key is throttled for as long as its
// full-count is above zero: it may feed more than one stream that is
// simultaneously full. If key names a source node parked in pendingReady
// (its previous Open/Process completed while it was throttled), dropping
// below the threshold here re-submits its next Process, the only place a
// throttled source's Process is ever resumed from.
func (s *Scheduler) NotifyFullnessChanged(key int, full bool) {
	s.mu.Lock()
	wasThrottled := s.throttled[key]
	if full {
		s.fullCounts[key]++
	} else if s.fullCounts[key] > 0 {
		s.fullCounts[key]--
	}
	nowThrottled := s.fullCounts[key] > 0
	s.throttled[key] = nowThrottled
	throttledGauge.Set(float64(countThrottled(s.throttled)))

	var ready *node.Node
	if wasThrottled && !nowThrottled {
		if n, ok := s.pendingReady[key]; ok {
			ready = n
			delete(s.pendingReady, key)
		}
	}
	s.mu.Unlock()

	s.checkIdle()
	if ready != nil && s.onSourceReady != nil {
		s.onSourceReady(ready)
	}
}

func countThrottled(m map[int]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

func (s *Scheduler) onResult(res Result) {
	s.mu.Lock()
	s.callbackTime += res.Duration
	s.mu.Unlock()

	if res.Err != nil && !gerrors.IsStop(res.Err) {
		nodeErrors.Inc()
		logger.Errorf("node %s (%d) %v invocation failed: %v", res.Item.Node.Name, res.Item.Node.ID, res.Item.Kind, res.Err)
		s.addError(res.Err)
	}
	if s.onNodeDone != nil {
		s.onNodeDone(res)
	}
	if !res.Item.Node.IsSource {
		return
	}
	if res.Stopped || (res.Err != nil && !gerrors.IsStop(res.Err)) {
		s.NotifySourceClosed(res.Item.Node)
		return
	}
	s.submitSourceReady(res.Item.Node)
}

// submitSourceReady calls onSourceReady for n unless n's key is currently
// throttled, per spec: a throttled source is not re-scheduled. A throttled
// source is instead parked in pendingReady and resubmitted by
// NotifyFullnessChanged once its downstream backlog drops below its
// ceiling.
func (s *Scheduler) submitSourceReady(n *node.Node) {
	if s.onSourceReady == nil {
		return
	}
	s.mu.Lock()
	if s.throttled[n.ID] {
		s.pendingReady[n.ID] = n
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.onSourceReady(n)
}

func (s *Scheduler) onQueueIdle() {
	s.checkIdle()
}

// checkIdle runs HandleIdle if every queue is currently idle. Reentrancy
// is guarded so a nested AddItem triggered from inside HandleIdle (e.g.
// activating the next source layer) doesn't recurse.
func (s *Scheduler) checkIdle() {
	s.mu.Lock()
	if s.handlingIdle {
		s.mu.Unlock()
		return
	}
	for _, q := range s.allQueues {
		if !q.IsIdle() {
			s.mu.Unlock()
			return
		}
	}
	s.handlingIdle = true
	s.mu.Unlock()

	s.handleIdle()

	s.mu.Lock()
	s.handlingIdle = false
	s.mu.Unlock()
}

// handleIdle implements the scheduler's idle state machine: activate the
// next source layer if the current one drained, attempt an unthrottle pass
// if every remaining active source is blocked, or terminate if there is no
// more packet-source work left to do (or an error has been recorded, or the
// run is cancelling).
func (s *Scheduler) handleIdle() {
	for {
		s.mu.Lock()
		state := s.state
		if state == NotStarted {
			s.mu.Unlock()
			return
		}
		stopping := state == Cancelling || s.errs.Combined() != nil

		if len(s.active) == 0 {
			if stopping {
				s.terminateLocked()
				s.mu.Unlock()
				return
			}
			activated, layer := s.activateNextLayerLocked()
			if !activated {
				noSources := s.nextLayer >= len(s.sourceLayers)
				inputsClosed := s.allGraphInputsClosed == nil || s.allGraphInputsClosed()
				if noSources && inputsClosed {
					s.terminateLocked()
					s.mu.Unlock()
					return
				}
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			if s.onLayerActive != nil {
				s.onLayerActive(layer)
			}
			continue
		}

		if stopping {
			s.terminateLocked()
			s.mu.Unlock()
			return
		}

		if !s.allActiveThrottledLocked() {
			s.mu.Unlock()
			return
		}
		un := s.unthrottle
		s.mu.Unlock()

		if un == nil || !un.Unthrottle() {
			return
		}
		unthrottleEvents.Inc()
	}
}

// activateNextLayerLocked moves the next non-empty source layer (if any)
// into the active set and returns it. Must be called with s.mu held.
func (s *Scheduler) activateNextLayerLocked() (bool, []*node.Node) {
	for s.nextLayer < len(s.sourceLayers) {
		layer := s.sourceLayers[s.nextLayer]
		s.nextLayer++
		if len(layer) == 0 {
			continue
		}
		for _, n := range layer {
			s.active[n.ID] = n
		}
		return true, layer
	}
	return false, nil
}

func (s *Scheduler) allActiveThrottledLocked() bool {
	for id := range s.active {
		if !s.throttled[id] {
			return false
		}
	}
	return true
}

func (s *Scheduler) terminateLocked() {
	if s.state == Terminated {
		return
	}
	s.state = Terminated
	activeQueuesGauge.Set(0)
	for _, q := range s.allQueues {
		q.SetRunning(false)
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// SortLayers orders a flat set of source nodes into ascending layer groups,
// each group itself sorted by (SourceProcessOrder, ID), for the graph
// package's Initialize step to hand to New.
func SortLayers(sources []*node.Node) [][]*node.Node {
	byLayer := map[int][]*node.Node{}
	for _, n := range sources {
		byLayer[n.SourceLayer] = append(byLayer[n.SourceLayer], n)
	}
	layers := make([]int, 0, len(byLayer))
	for l := range byLayer {
		layers = append(layers, l)
	}
	sort.Ints(layers)

	out := make([][]*node.Node, 0, len(layers))
	for _, l := range layers {
		group := byLayer[l]
		sort.Slice(group, func(i, j int) bool {
			if group[i].SourceProcessOrder() != group[j].SourceProcessOrder() {
				return group[i].SourceProcessOrder() < group[j].SourceProcessOrder()
			}
			return group[i].ID < group[j].ID
		})
		out = append(out, group)
	}
	return out
}
