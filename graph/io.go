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

	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// AddMode controls AddPacketToInputStream's behavior when any downstream
// queue mirroring the target input is already full.
type AddMode int

const (
	// WaitTillNotFull blocks until no downstream queue is full, or the run
	// terminates.
	WaitTillNotFull AddMode = iota
	// AddIfNotFull returns Unavailable immediately rather than blocking.
	AddIfNotFull
)

// fullPollInterval is how often AddPacketToInputStream re-checks downstream
// fullness while waiting in WaitTillNotFull mode.
const fullPollInterval = 5 * time.Millisecond

// AddPacketToInputStream pushes p onto the graph input stream named name.
// mode defaults to WaitTillNotFull if omitted. Only one mode value is ever
// consulted; passing more than one is a programmer error, not validated.
func (g *Graph) AddPacketToInputStream(name string, p packet.Packet, mode ...AddMode) error {
	m := WaitTillNotFull
	if len(mode) > 0 {
		m = mode[0]
	}

	g.mu.Lock()
	out, ok := g.graphInputs[name]
	closed := g.inputClosed[name]
	sched := g.sched
	g.mu.Unlock()

	if !ok {
		return gerrors.InvalidArgumentf("graph input stream %q is not declared", name)
	}
	if sched == nil {
		return gerrors.FailedPreconditionf("graph input stream %q: StartRun has not been called", name)
	}
	if closed {
		return gerrors.FailedPreconditionf("graph input stream %q is closed", name)
	}
	if !p.Timestamp().IsAllowedInStream() {
		return gerrors.InvalidArgumentf("packet timestamp %s is not allowed on a graph input stream", p.Timestamp())
	}

	for out.AnyMirrorFull() {
		if m == AddIfNotFull {
			return gerrors.Unavailablef("graph input stream %q: downstream queue is full", name)
		}
		select {
		case <-sched.Done():
			return gerrors.CancelledStatus("graph terminated while waiting for a full downstream queue")
		case <-time.After(fullPollInterval):
		}
	}

	shard := out.NewShard()
	shard.AddPacket(p)
	if err := out.PropagateUpdatesToMirrors(shard); err != nil {
		sched.RecordError(err)
		return err
	}
	g.requestPump()
	return nil
}

// SetInputStreamTimestampBound advances the timestamp bound of the graph
// input stream named name without pushing a packet, for a source of record
// that knows no more data will arrive before t.
func (g *Graph) SetInputStreamTimestampBound(name string, t timestamp.Timestamp) error {
	g.mu.Lock()
	out, ok := g.graphInputs[name]
	g.mu.Unlock()
	if !ok {
		return gerrors.InvalidArgumentf("graph input stream %q is not declared", name)
	}

	shard := out.NewShard()
	shard.SetNextTimestampBound(t)
	if err := out.PropagateUpdatesToMirrors(shard); err != nil {
		if g.sched != nil {
			g.sched.RecordError(err)
		}
		return err
	}
	g.requestPump()
	return nil
}

// SetInputStreamMaxQueueSize overrides the queue ceiling of every node input
// fed by the graph input stream named name.
func (g *Graph) SetInputStreamMaxQueueSize(name string, n int) error {
	g.mu.Lock()
	ins, ok := g.inputsByStream[name]
	g.mu.Unlock()
	if !ok {
		return gerrors.InvalidArgumentf("graph input stream %q is not declared", name)
	}
	for _, in := range ins {
		in.SetMaxQueueSize(n)
	}
	return nil
}

// CloseInputStream closes the graph input stream named name: its mirrors
// see a terminal bound and no further AddPacketToInputStream call against
// it succeeds. Idempotent.
func (g *Graph) CloseInputStream(name string) error {
	g.mu.Lock()
	out, ok := g.graphInputs[name]
	already := g.inputClosed[name]
	g.mu.Unlock()
	if !ok {
		return gerrors.InvalidArgumentf("graph input stream %q is not declared", name)
	}
	if already {
		return nil
	}

	out.Close()

	g.mu.Lock()
	g.inputClosed[name] = true
	sched := g.sched
	g.mu.Unlock()

	g.requestPump()
	if sched != nil {
		sched.Poke()
	}
	return nil
}

// CloseAllInputStreams closes every declared graph input stream.
func (g *Graph) CloseAllInputStreams() error {
	g.mu.Lock()
	names := make([]string, 0, len(g.graphInputs))
	for name := range g.graphInputs {
		names = append(names, name)
	}
	g.mu.Unlock()

	var combined gerrors.Combiner
	for _, name := range names {
		combined.Add(g.CloseInputStream(name))
	}
	return combined.Combined()
}

// CloseAllPacketSources closes every declared graph input stream, the
// counterpart to a natively-exhausted packet source: once this returns, the
// only way new data can still flow is an already-active source node
// draining its own upstream (side-packet-fed) data.
func (g *Graph) CloseAllPacketSources() error {
	return g.CloseAllInputStreams()
}
