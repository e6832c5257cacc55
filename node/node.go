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

package node

import (
	"sync"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/internal/rescue"
	"github.com/calcd/calcd/outstream"
	"github.com/calcd/calcd/sidepacket"
	"github.com/calcd/calcd/timestamp"
)

// Node is one calculator binding: its declared streams, its state machine
// position and the offset/source-process-order a calculator may declare
// during Open. Allocated once at Initialize and never moved; handlers and
// the scheduler hold long-lived pointers to it.
type Node struct {
	ID                 int
	Name               string
	IsSource           bool
	ExecutorName       string
	SourceLayer        int
	sourceProcessOrder int64

	Calc    calculator.Calculator
	Handler handler.Handler

	Inputs  map[string]*instream.Manager
	Outputs map[string]*outstream.Manager
	Sides   *sidepacket.Manager

	mu        sync.Mutex
	state     State
	hasOffset bool
	offset    int64
}

// New returns a Prepared node. outputs must already contain every
// declared output's Manager; inputs may be nil for source nodes.
func New(id int, name string, isSource bool, calc calculator.Calculator, h handler.Handler, inputs map[string]*instream.Manager, outputs map[string]*outstream.Manager, sides *sidepacket.Manager) *Node {
	return &Node{
		ID:                 id,
		Name:               name,
		IsSource:           isSource,
		Calc:               calc,
		Handler:            h,
		Inputs:             inputs,
		Outputs:            outputs,
		Sides:              sides,
		sourceProcessOrder: timestamp.Unstarted.Value(),
		state:              Prepared,
	}
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

func (n *Node) setOffset(offset int64) {
	n.mu.Lock()
	n.offset = offset
	n.hasOffset = true
	n.mu.Unlock()
}

func (n *Node) setSourceProcessOrder(order int64) {
	n.mu.Lock()
	n.sourceProcessOrder = order
	n.mu.Unlock()
}

// SourceProcessOrder returns the SchedulerQueue tie-breaker for a source
// node, defaulting to timestamp.Unstarted's value until Open overrides it.
func (n *Node) SourceProcessOrder() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sourceProcessOrder
}

func (n *Node) newShards() map[string]*outstream.Shard {
	shards := make(map[string]*outstream.Shard, len(n.Outputs))
	for name, out := range n.Outputs {
		shards[name] = out.NewShard()
	}
	return shards
}

func (n *Node) propagate(shards map[string]*outstream.Shard) error {
	var combined gerrors.Combiner
	for name, shard := range shards {
		if err := n.Outputs[name].PropagateUpdatesToMirrors(shard); err != nil {
			combined.Add(err)
		}
	}
	return combined.Combined()
}

// Open invokes the calculator's Open exactly once. On success the node
// transitions to Opened; on error it transitions directly to Closed
// without ever calling Close, per spec.
func (n *Node) Open() (err error) {
	defer rescue.Guard(&err)

	shards := n.newShards()
	ctx := &Context{n: n, ts: timestamp.Unstarted, shards: shards, sides: n.Sides, opening: true}

	if err = n.Calc.Open(ctx); err != nil {
		n.setState(Closed)
		return err
	}
	if perr := n.propagate(shards); perr != nil {
		n.setState(Closed)
		return perr
	}

	n.setState(Opened)
	return nil
}

// Process invokes the calculator once for set. stopped reports whether
// the calculator returned the Stop sentinel (never itself an error).
func (n *Node) Process(set handler.InputSet) (stopped bool, err error) {
	defer rescue.Guard(&err)

	shards := n.newShards()
	if n.hasOffsetLocked() && set.Timestamp.IsAllowedInStream() {
		bound := timestamp.Timestamp(set.Timestamp.Value() + n.offsetLocked())
		for _, shard := range shards {
			shard.SetNextTimestampBound(bound)
		}
	}

	ctx := &Context{n: n, ts: set.Timestamp, inputs: set.Packets, shards: shards, sides: n.Sides, opening: false}
	n.setState(Active)

	cerr := n.Calc.Process(ctx)
	if perr := n.propagate(shards); perr != nil {
		if cerr == nil {
			cerr = perr
		}
	}

	n.setState(Idle)

	if gerrors.IsStop(cerr) {
		return true, nil
	}
	return false, cerr
}

// Close invokes the calculator's Close exactly once (unless Open already
// failed and routed the node directly to Closed, skipping Close
// entirely). Idempotent: a second call is a no-op.
func (n *Node) Close(cause error) (err error) {
	if n.State() == Closed {
		return nil
	}
	defer rescue.Guard(&err)

	shards := n.newShards()
	ctx := &Context{n: n, ts: timestamp.Done, shards: shards, sides: n.Sides, opening: false}

	err = n.Calc.Close(ctx, cause)
	if perr := n.propagate(shards); perr != nil && err == nil {
		err = perr
	}
	for _, out := range n.Outputs {
		out.Close()
	}

	n.setState(Closed)
	return err
}

func (n *Node) hasOffsetLocked() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hasOffset
}

func (n *Node) offsetLocked() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.offset
}
