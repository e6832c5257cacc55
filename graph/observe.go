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
	"github.com/calcd/calcd/internal/pubsub"
	"github.com/calcd/calcd/packet"
)

// ObserveOutputStream registers cb to be invoked, synchronously and in
// emission order, once per packet the output stream named name emits from
// now on. Each emission on any observed or polled stream also signals
// WaitForObservedOutput; signals not yet consumed coalesce, so one wake-up
// can stand for several emissions.
//
// If observeTimestampBounds is true, cb is also invoked, with an empty
// packet stamped at the new bound, whenever the stream's timestamp bound
// advances without an accompanying packet — including the terminal
// advance to timestamp.Done when the stream closes. This is the only way
// to observe a stream that closes having never emitted a single packet;
// with observeTimestampBounds false, such a stream's closure is silent to
// this observer.
func (g *Graph) ObserveOutputStream(name string, cb func(packet.Packet), observeTimestampBounds bool) error {
	g.mu.Lock()
	out, ok := g.streamProducers[name]
	g.mu.Unlock()
	if !ok {
		return gerrors.InvalidArgumentf("output stream %q is not declared", name)
	}

	out.AddObserver(func(p packet.Packet) {
		cb(p)
		g.notifyEmitted()
	}, observeTimestampBounds)
	return nil
}

// Poller is a pull-based handle on one output stream's packets, returned by
// AddOutputStreamPoller.
type Poller struct {
	hub   *pubsub.PubSub
	queue pubsub.Queue
}

// Next blocks for up to timeout waiting for the next packet. ok is false on
// timeout.
func (p *Poller) Next(timeout time.Duration) (pkt packet.Packet, ok bool) {
	v, got := p.queue.PopTimeout(timeout)
	if !got {
		return packet.Packet{}, false
	}
	return v.(packet.Packet), true
}

// Close releases the poller's subscription. Safe to call more than once.
func (p *Poller) Close() {
	p.hub.Unsubscribe(p.queue)
	p.queue.Close()
}

// AddOutputStreamPoller returns a Poller delivering every future packet
// emitted on the output stream named name, queued up to size deep (size <=
// 0 defaults to 1, per pubsub.PubSub.Subscribe).
func (g *Graph) AddOutputStreamPoller(name string, size int) (*Poller, error) {
	g.mu.Lock()
	out, ok := g.streamProducers[name]
	if !ok {
		g.mu.Unlock()
		return nil, gerrors.InvalidArgumentf("output stream %q is not declared", name)
	}
	hub, exists := g.pollerHubs[name]
	if !exists {
		hub = pubsub.New()
		g.pollerHubs[name] = hub
		g.mu.Unlock()
		out.AddObserver(func(p packet.Packet) {
			hub.Publish(p)
			g.notifyEmitted()
		}, false)
	} else {
		g.mu.Unlock()
	}

	return &Poller{hub: hub, queue: hub.Subscribe(size)}, nil
}

// WaitForObservedOutput blocks until at least one packet has been delivered
// to some observer or poller since the last call, or the run has
// terminated with nothing pending, in which case it returns OutOfRange.
func (g *Graph) WaitForObservedOutput() error {
	g.mu.Lock()
	sched := g.sched
	g.mu.Unlock()
	if sched == nil {
		return gerrors.FailedPreconditionf("StartRun has not been called")
	}

	select {
	case <-g.emitted:
		return nil
	default:
	}

	select {
	case <-g.emitted:
		return nil
	case <-sched.Done():
		select {
		case <-g.emitted:
			return nil
		default:
			return gerrors.OutOfRangef("graph terminated with no observed output pending")
		}
	}
}

func (g *Graph) notifyEmitted() {
	select {
	case g.emitted <- struct{}{}:
	default:
	}
}

// GetOutputSidePacket returns the named output side packet's resolved
// value, if any, from the most recent StartRun (or the base side packets,
// before a run ever started).
func (g *Graph) GetOutputSidePacket(name string) (packet.Packet, bool) {
	g.mu.Lock()
	sides := g.runSides
	if sides == nil {
		sides = g.baseSides
	}
	g.mu.Unlock()
	if sides == nil {
		return packet.Packet{}, false
	}
	return sides.Get(name)
}
