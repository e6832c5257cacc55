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

// Package graph assembles a validated graph configuration into live
// node, stream and side-packet objects, wires them to a Scheduler, and
// exposes the single façade an embedding program drives a run through:
// Initialize once, StartRun per invocation, push packets on graph inputs,
// observe or poll graph outputs, and wait for completion or cancel.
package graph

import (
	"fmt"
	"sync"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/executor"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/graphconfig"
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/internal/pubsub"
	"github.com/calcd/calcd/node"
	"github.com/calcd/calcd/outstream"
	"github.com/calcd/calcd/scheduler"
	"github.com/calcd/calcd/sidepacket"
)

// Graph is one validated configuration's live instantiation. A Graph is
// built once via New+Initialize and then driven through any number of
// StartRun/WaitUntilDone cycles, mirroring the teacher's
// Manager-holds-Processors-for-its-lifetime shape but for a dataflow
// graph instead of a flat processor list.
type Graph struct {
	mu  sync.Mutex
	cfg *graphconfig.ValidatedGraph

	nodes []*node.Node

	// streamProducers indexes every stream's single producer, whether a
	// node output or a graph input, by name.
	streamProducers map[string]*outstream.Manager
	graphInputs     map[string]*outstream.Manager
	inputClosed     map[string]bool
	allInputs       []*instream.Manager
	inputsByStream  map[string][]*instream.Manager

	baseSides *sidepacket.Manager
	runSides  *sidepacket.Manager
	genGraph  *sidepacket.Graph

	defaultExec executor.Executor
	namedExecs  map[string]executor.Executor

	sched *scheduler.Scheduler

	pumpMu      sync.Mutex
	pumpRunning bool
	pumpDirty   bool
	busy        map[int]bool

	pollerHubs map[string]*pubsub.PubSub
	emitted    chan struct{}

	errCallback func(error)
	started     bool
}

// New returns a Graph bound to cfg, not yet Initialize'd.
func New(cfg *graphconfig.ValidatedGraph) *Graph {
	return &Graph{
		cfg:             cfg,
		streamProducers: make(map[string]*outstream.Manager),
		graphInputs:     make(map[string]*outstream.Manager),
		inputClosed:     make(map[string]bool),
		inputsByStream:  make(map[string][]*instream.Manager),
		pollerHubs:      make(map[string]*pubsub.PubSub),
		emitted:         make(chan struct{}, 1),
		busy:            make(map[int]bool),
	}
}

// hasSourceLocked reports whether any node in the graph is a source node.
// Callers must hold g.mu.
func (g *Graph) hasSourceLocked() bool {
	for _, n := range g.nodes {
		if n.IsSource {
			return true
		}
	}
	return false
}

// Initialize builds every node, stream and executor the configuration
// declares and runs the packet-generator graph's initialize phase against
// baseSidePackets (nil is treated as empty). It must be called exactly
// once, before any StartRun.
func (g *Graph) Initialize(baseSidePackets *sidepacket.Manager) error {
	if baseSidePackets == nil {
		baseSidePackets = sidepacket.NewManager()
	}

	for _, name := range g.cfg.InputStream {
		out := outstream.New(name, nil)
		g.streamProducers[name] = out
		g.graphInputs[name] = out
	}

	// Every node's outputs are allocated before any node's inputs are
	// wired, so a back edge (including a self-loop) always finds its
	// producer already present regardless of declaration order.
	for _, vn := range g.cfg.Nodes {
		for _, s := range vn.OutputStream {
			g.streamProducers[s] = outstream.New(s, nil)
		}
	}

	upstream := computeStreamUpstream(g.cfg, g.streamProducers)

	inputsByNode := make([]map[string]*instream.Manager, len(g.cfg.Nodes))
	for i, vn := range g.cfg.Nodes {
		ins := make(map[string]*instream.Manager, len(vn.InputStream))
		for _, s := range vn.InputStream {
			producer, ok := g.streamProducers[s]
			if !ok {
				return gerrors.InvalidArgumentf("node %q: input stream %q has no producer", vn.Name, s)
			}
			in := instream.New(s, vn.ID, g.cfg.MaxQueueSize)
			keys := upstream[s]
			in.SetFullnessHook(func(full bool) {
				for key := range keys {
					g.sched.NotifyFullnessChanged(key, full)
				}
			})
			producer.AddMirror(in)
			ins[s] = in
			g.allInputs = append(g.allInputs, in)
			g.inputsByStream[s] = append(g.inputsByStream[s], in)
		}
		inputsByNode[i] = ins
	}

	gens := make([]sidepacket.Generator, 0, len(g.cfg.PacketGenerator))
	for _, gc := range g.cfg.PacketGenerator {
		create, err := sidepacket.Get(gc.Generator)
		if err != nil {
			return gerrors.InvalidArgumentf("packet_generator %q: %v", gc.Generator, err)
		}
		gen, err := create(common.Options(gc.Options))
		if err != nil {
			return gerrors.Wrap(err, "constructing packet generator "+gc.Generator)
		}
		gens = append(gens, gen)
	}
	g.genGraph = sidepacket.NewGraph(gens)
	resolvedBase, err := g.genGraph.RunInitializePhase(baseSidePackets)
	if err != nil {
		return err
	}
	g.baseSides = resolvedBase

	g.nodes = make([]*node.Node, len(g.cfg.Nodes))
	for i, vn := range g.cfg.Nodes {
		create, err := calculator.Get(vn.Calculator)
		if err != nil {
			return gerrors.InvalidArgumentf("node %q: %v", vn.Name, err)
		}
		calc, err := create(common.Options(vn.Options))
		if err != nil {
			return gerrors.Wrap(err, fmt.Sprintf("constructing calculator %s for node %s", vn.Calculator, vn.Name))
		}
		h, err := newHandler(vn.InputStreamHandler, common.Options(vn.Options))
		if err != nil {
			return err
		}
		for name, in := range inputsByNode[i] {
			h.Add(name, in)
		}

		outs := make(map[string]*outstream.Manager, len(vn.OutputStream))
		for _, s := range vn.OutputStream {
			outs[s] = g.streamProducers[s]
		}

		n := node.New(vn.ID, vn.Name, vn.IsSource, calc, h, inputsByNode[i], outs, g.baseSides)
		n.ExecutorName = vn.Executor
		n.SourceLayer = vn.SourceLayer
		g.nodes[i] = n
	}

	g.defaultExec = newDefaultExecutor(g.cfg.NumThreads)
	g.namedExecs = make(map[string]executor.Executor, len(g.cfg.Executor))
	for name, ec := range g.cfg.Executor {
		g.namedExecs[name] = newExecutor(ec)
	}

	return nil
}

func newDefaultExecutor(numThreads int) executor.Executor {
	if numThreads == 0 {
		return executor.NewApplicationThread()
	}
	return executor.NewThreadPool(numThreads)
}

func newExecutor(ec graphconfig.ExecutorConfig) executor.Executor {
	switch ec.Type {
	case "application":
		return executor.NewApplicationThread()
	case "current_thread":
		return executor.NewCurrentThread()
	default:
		return executor.NewThreadPool(ec.NumThreads)
	}
}

// newHandler builds the InputStreamHandler a node's config names. Handlers
// with structured parameters (SyncSet's subsets, EarlyClose's wrapped
// handler) have no scalar config representation and stay
// programmatically-composable only; config-driven nodes get the handlers
// whose construction fits a flat option bag.
func newHandler(name string, opts common.Options) (handler.Handler, error) {
	switch name {
	case "", "Default":
		return handler.NewDefault(), nil
	case "Immediate":
		return handler.NewImmediate(), nil
	case "Barrier":
		return handler.NewBarrier(), nil
	case "Mux":
		return handler.NewMux(), nil
	case "FixedSize":
		capacity, err := opts.GetInt("capacity")
		if err != nil || capacity <= 0 {
			capacity = graphconfig.DefaultMaxQueueSize
		}
		return handler.NewFixedSize(capacity), nil
	case "TimestampAlign":
		primary, err := opts.GetString("primary")
		if err != nil || primary == "" {
			return nil, gerrors.InvalidArgumentf("input_stream_handler TimestampAlign requires options.primary")
		}
		return handler.NewTimestampAlign(primary), nil
	default:
		return nil, gerrors.InvalidArgumentf("unknown input_stream_handler %q", name)
	}
}

func isBackEdge(streams []string, name string) bool {
	for _, s := range streams {
		if s == name {
			return true
		}
	}
	return false
}

// computeStreamUpstream walks the validated graph backward from every
// stream to the source nodes and graph inputs that transitively feed it,
// so each consuming InputStreamManager's fullness hook can attribute a
// backlog to the right upstream key(s) for Scheduler.NotifyFullnessChanged.
// Source node keys are their node ID (>= 0); graph-input keys are negative,
// one per declared input stream, so the two key spaces never collide.
// This is a simplification of a per-stream reachability bitset: it
// attributes a full queue to every upstream key that can reach it, rather
// than computing the minimal responsible set.
func computeStreamUpstream(cfg *graphconfig.ValidatedGraph, producers map[string]*outstream.Manager) map[string]map[int]bool {
	nodeOf := make(map[string]*graphconfig.ValidatedNode, len(cfg.Nodes))
	for i := range cfg.Nodes {
		vn := &cfg.Nodes[i]
		for _, s := range vn.OutputStream {
			nodeOf[s] = vn
		}
	}
	graphInputKey := make(map[string]int, len(cfg.InputStream))
	for i, s := range cfg.InputStream {
		graphInputKey[s] = -(i + 1)
	}

	memo := make(map[string]map[int]bool, len(producers))
	var resolve func(stream string, visiting map[string]bool) map[int]bool
	resolve = func(stream string, visiting map[string]bool) map[int]bool {
		if cached, ok := memo[stream]; ok {
			return cached
		}
		if visiting[stream] {
			return map[int]bool{}
		}
		visiting[stream] = true
		defer delete(visiting, stream)

		result := map[int]bool{}
		if key, ok := graphInputKey[stream]; ok {
			result[key] = true
			memo[stream] = result
			return result
		}
		vn, ok := nodeOf[stream]
		if !ok {
			memo[stream] = result
			return result
		}
		if vn.IsSource {
			result[vn.ID] = true
		}
		for _, in := range vn.InputStream {
			if isBackEdge(vn.BackEdgeInputStream, in) {
				continue
			}
			for k := range resolve(in, visiting) {
				result[k] = true
			}
		}
		memo[stream] = result
		return result
	}

	out := make(map[string]map[int]bool, len(producers))
	for stream := range producers {
		out[stream] = resolve(stream, map[string]bool{})
	}
	return out
}
