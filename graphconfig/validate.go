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

package graphconfig

import (
	"fmt"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/sidepacket"
)

// ValidatedNode is one node of the canonicalized artifact: its config
// fields plus the ID assigned by topological order and the IsSource flag,
// set for a node with no input streams (back-edge inputs included) and no
// input side packets.
type ValidatedNode struct {
	ID                  int
	Name                string
	Calculator          string
	InputStream         []string
	OutputStream        []string
	InputSidePacket     []string
	OutputSidePacket    []string
	BackEdgeInputStream []string
	InputStreamHandler  string
	Executor            string
	SourceLayer         int
	Options             map[string]any
	IsSource            bool
}

// ValidatedGraph is the read-only artifact the rest of the core consumes:
// nodes in topological order (back-edges excluded from the ordering
// constraint), plus graph-level streams, generators and executors.
type ValidatedGraph struct {
	Nodes           []ValidatedNode
	InputStream     []string
	OutputStream    []string
	PacketGenerator []PacketGeneratorConfig
	Executor        map[string]ExecutorConfig
	NumThreads      int
	MaxQueueSize    int
}

// Validate canonicalizes raw into a ValidatedGraph: it checks for
// duplicate names, unknown calculators and generators, and
// topologically sorts nodes by producer/consumer stream edges, treating
// any stream listed in a node's BackEdgeInputStream as exempt from the
// ordering constraint (the only way a graph may legally contain a cycle).
func Validate(raw *GraphConfig) (*ValidatedGraph, error) {
	g := &ValidatedGraph{
		InputStream:     raw.InputStream,
		OutputStream:    raw.OutputStream,
		PacketGenerator: raw.PacketGenerator,
		Executor:        make(map[string]ExecutorConfig, len(raw.Executor)),
		NumThreads:      raw.NumThreads,
		MaxQueueSize:    raw.MaxQueueSize,
	}
	if g.MaxQueueSize <= 0 {
		g.MaxQueueSize = DefaultMaxQueueSize
	}

	for _, ex := range raw.Executor {
		if ex.Name == "" {
			return nil, gerrors.InvalidArgumentf("executor declaration missing a name")
		}
		if _, dup := g.Executor[ex.Name]; dup {
			return nil, gerrors.InvalidArgumentf("duplicate executor name %q", ex.Name)
		}
		g.Executor[ex.Name] = ex
	}

	names := make(map[string]int, len(raw.Node))
	producer := make(map[string]int, len(raw.Node)) // stream name -> producing node index, -1 for graph input
	for _, s := range raw.InputStream {
		producer[s] = -1
	}

	for i, n := range raw.Node {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", n.Calculator, i)
		}
		if _, dup := names[name]; dup {
			return nil, gerrors.InvalidArgumentf("duplicate node name %q", name)
		}
		names[name] = i

		if n.Calculator == "" {
			return nil, gerrors.InvalidArgumentf("node %q missing calculator", name)
		}
		if _, err := calculator.Get(n.Calculator); err != nil {
			return nil, gerrors.InvalidArgumentf("node %q: calculator %q not registered", name, n.Calculator)
		}
		if n.Executor != "" {
			if _, ok := g.Executor[n.Executor]; !ok {
				return nil, gerrors.InvalidArgumentf("node %q: executor %q not declared", name, n.Executor)
			}
		}

		for _, s := range n.OutputStream {
			if existing, dup := producer[s]; dup {
				return nil, gerrors.AlreadyExistsf("stream %q already produced by node index %d", s, existing)
			}
			producer[s] = i
		}
	}

	for _, gen := range raw.PacketGenerator {
		if gen.Generator == "" {
			return nil, gerrors.InvalidArgumentf("packet_generator entry missing a generator name")
		}
		if _, err := sidepacket.Get(gen.Generator); err != nil {
			return nil, gerrors.InvalidArgumentf("packet_generator %q not registered", gen.Generator)
		}
	}

	order, err := topoSort(raw.Node, producer)
	if err != nil {
		return nil, err
	}

	g.Nodes = make([]ValidatedNode, 0, len(raw.Node))
	for id, idx := range order {
		n := raw.Node[idx]
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", n.Calculator, idx)
		}
		isSource := len(n.InputStream) == 0 && len(n.InputSidePacket) == 0
		g.Nodes = append(g.Nodes, ValidatedNode{
			ID:                  id,
			Name:                name,
			Calculator:          n.Calculator,
			InputStream:         n.InputStream,
			OutputStream:        n.OutputStream,
			InputSidePacket:     n.InputSidePacket,
			OutputSidePacket:    n.OutputSidePacket,
			BackEdgeInputStream: n.BackEdgeInputStream,
			InputStreamHandler:  n.InputStreamHandler,
			Executor:            n.Executor,
			SourceLayer:         n.SourceLayer,
			Options:             n.Options,
			IsSource:            isSource,
		})
	}
	return g, nil
}

func isBackEdge(n NodeConfig, stream string) bool {
	for _, s := range n.BackEdgeInputStream {
		if s == stream {
			return true
		}
	}
	return false
}

// topoSort returns raw.Node indices in dependency order (producers before
// consumers), ignoring edges a node marked as a back-edge input. Returns
// InvalidArgument if a cycle remains once back-edges are excluded.
func topoSort(nodes []NodeConfig, producer map[string]int) ([]int, error) {
	deps := make([][]int, len(nodes)) // node index -> indices it depends on
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))

	for i, n := range nodes {
		seen := map[int]bool{}
		for _, s := range n.InputStream {
			if isBackEdge(n, s) {
				continue
			}
			from, ok := producer[s]
			if !ok {
				return nil, gerrors.InvalidArgumentf("node %d: input stream %q has no producer", i, s)
			}
			if from < 0 || from == i || seen[from] {
				continue
			}
			seen[from] = true
			deps[i] = append(deps[i], from)
			dependents[from] = append(dependents[from], i)
			indegree[i]++
		}
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	var order []int
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, dep := range dependents[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, gerrors.InvalidArgumentf("graph contains a cycle not declared via back_edge_input_stream")
	}
	return order, nil
}
