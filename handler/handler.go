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

// Package handler implements the InputStreamHandler policies that decide
// when a node is ready to run and what timestamp its next Process call
// carries.
package handler

import (
	"sort"
	"sync"

	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// InputSet is one Process invocation's worth of input: the timestamp to
// attribute to the call and, per input name, the packet delivered (absent
// if that input had no data at this timestamp).
type InputSet struct {
	Timestamp timestamp.Timestamp
	Packets   map[string]packet.Packet
}

// Handler decides readiness for one node's collection of inputs. A fresh
// Handler value is created per node at Prepare time; Add registers each
// declared input in declaration order.
type Handler interface {
	// Add registers an input stream under name.
	Add(name string, in *instream.Manager)

	// Names returns input names in declaration order.
	Names() []string

	// NextInputSet returns the next ready input set, if any. Calling it
	// repeatedly drains whatever has accumulated; successive returned
	// sets carry strictly increasing Timestamp values.
	NextInputSet() (InputSet, bool)

	// Done reports whether this handler's policy considers the node
	// exhausted (e.g. every input closed and drained).
	Done() bool
}

// base centralizes the bookkeeping every concrete handler needs: the
// ordered input name list and the *instream.Manager each name maps to.
type base struct {
	mu     sync.Mutex
	names  []string
	inputs map[string]*instream.Manager
}

func newBase() base {
	return base{inputs: make(map[string]*instream.Manager)}
}

func (b *base) Add(name string, in *instream.Manager) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inputs[name]; !ok {
		b.names = append(b.names, name)
	}
	b.inputs[name] = in
}

func (b *base) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

func (b *base) managers() []*instream.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*instream.Manager, len(b.names))
	for i, n := range b.names {
		out[i] = b.inputs[n]
	}
	return out
}

func (b *base) allDone() bool {
	for _, m := range b.managers() {
		if !m.Done() {
			return false
		}
	}
	return len(b.names) > 0
}

func (b *base) anyDone() bool {
	for _, m := range b.managers() {
		if m.Done() {
			return true
		}
	}
	return false
}

func sortedCopy(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
