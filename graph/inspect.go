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
	"fmt"
	"sort"
	"strconv"

	"github.com/calcd/calcd/internal/labels"
)

// NodeStatus is one node's reportable position, for introspection routes.
type NodeStatus struct {
	Name       string `json:"name"`
	Calculator string `json:"calculator"`
	State      string `json:"state"`
	IsSource   bool   `json:"is_source"`
	// OptionsHash is a stable hash of the node's options, so an operator
	// diffing two /-/graph dumps can spot a config change without
	// comparing the full options body.
	OptionsHash string `json:"options_hash"`
}

// Inspect returns every node's current state, in declaration order. Safe to
// call at any point after Initialize, including mid-run and after the run
// has terminated.
func (g *Graph) Inspect() []NodeStatus {
	g.mu.Lock()
	nodes := g.nodes
	cfg := g.cfg
	g.mu.Unlock()

	out := make([]NodeStatus, len(nodes))
	for i, n := range nodes {
		out[i] = NodeStatus{
			Name:     n.Name,
			State:    n.State().String(),
			IsSource: n.IsSource,
		}
		if i < len(cfg.Nodes) {
			out[i].Calculator = cfg.Nodes[i].Calculator
			out[i].OptionsHash = optionsHash(cfg.Nodes[i].Options)
		}
	}
	return out
}

// optionsHash returns a stable hex hash of an options map, independent of
// Go's randomized map iteration order.
func optionsHash(opts map[string]any) string {
	ls := make(labels.Labels, 0, len(opts))
	for k, v := range opts {
		ls = append(ls, labels.Label{Name: k, Value: fmt.Sprintf("%v", v)})
	}
	sort.Sort(ls)
	return strconv.FormatUint(ls.Hash(), 16)
}
