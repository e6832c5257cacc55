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

// Package outstream implements the producer-side staging buffer
// (OutputStreamShard) handed to a node for one invocation, and the
// OutputStreamManager that atomically propagates a shard's writes to every
// downstream InputStreamManager once the node returns.
package outstream

import (
	"reflect"
	"sync"

	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// Shard is the scratch area a node writes to during one Open/Process
// invocation. It is never shared between concurrent invocations of the
// same node: each gets its own Shard, since a single stream has a single
// producer.
type Shard struct {
	packets    []packet.Packet
	hasBound   bool
	bound      timestamp.Timestamp
}

// AddPacket stages p for propagation once the node returns. Packets must
// be added in strictly increasing timestamp order within one Shard; the
// Manager validates monotonicity against prior invocations too.
func (s *Shard) AddPacket(p packet.Packet) {
	s.packets = append(s.packets, p)
}

// SetNextTimestampBound stages a bound advance for propagation even if no
// packet accompanies it this invocation.
func (s *Shard) SetNextTimestampBound(t timestamp.Timestamp) {
	s.hasBound = true
	s.bound = t
}

func (s *Shard) Packets() []packet.Packet { return s.packets }

func (s *Shard) Bound() (timestamp.Timestamp, bool) { return s.bound, s.hasBound }

func (s *Shard) reset() {
	s.packets = s.packets[:0]
	s.hasBound = false
}

// Manager owns one output's declared type, header, bound and downstream
// mirror list. Like instream.Manager it is allocated once at Initialize
// and never moved, since node output-pointers reference it directly.
type Manager struct {
	mu sync.Mutex

	name     string
	elemType reflect.Type // nil = untyped / any element accepted

	header      packet.Packet
	hasHeader   bool
	bound       timestamp.Timestamp
	lastEmitted timestamp.Timestamp
	hasEmitted  bool
	closed      bool

	mirrors   []*instream.Manager
	observers []observerEntry
}

// observerEntry pairs a registered callback with whether it also wants
// bound-only advances (including the terminal bound on Close) delivered as
// an empty packet stamped with the new bound, rather than only real
// packets.
type observerEntry struct {
	cb            func(packet.Packet)
	observeBounds bool
}

// New returns a Manager for an output named name. elemType, if non-nil,
// is the declared Go type every emitted packet's payload must satisfy.
func New(name string, elemType reflect.Type) *Manager {
	return &Manager{
		name:     name,
		elemType: elemType,
		bound:    timestamp.Unstarted,
	}
}

func (m *Manager) Name() string { return m.name }

// NewShard returns a fresh Shard for one node invocation.
func (m *Manager) NewShard() *Shard {
	return &Shard{}
}

// AddMirror registers a downstream InputStreamManager to receive this
// output's future writes.
func (m *Manager) AddMirror(in *instream.Manager) {
	m.mu.Lock()
	m.mirrors = append(m.mirrors, in)
	m.mu.Unlock()
}

// AddObserver registers a callback invoked, outside the manager's lock,
// once per packet this output emits from now on. Graph's ObserveOutputStream
// and AddOutputStreamPoller are both built on this. If observeBounds is
// true, cb is additionally invoked with an empty packet stamped at the
// stream's new bound whenever that bound advances without an accompanying
// packet, and once more at Close with timestamp.Done — the only way to
// observe a stream that closes without ever emitting a packet.
func (m *Manager) AddObserver(cb func(packet.Packet), observeBounds bool) {
	m.mu.Lock()
	m.observers = append(m.observers, observerEntry{cb: cb, observeBounds: observeBounds})
	m.mu.Unlock()
}

// AnyMirrorFull reports whether any downstream InputStreamManager mirroring
// this output is currently at its queue ceiling, consulted by a graph-input
// write path that must block or reject rather than overrun a bounded queue.
func (m *Manager) AnyMirrorFull() bool {
	m.mu.Lock()
	mirrors := append([]*instream.Manager(nil), m.mirrors...)
	m.mu.Unlock()

	for _, in := range mirrors {
		if in.IsFull() {
			return true
		}
	}
	return false
}

// SetHeader records this output's header and pushes it immediately to the
// mirrors already registered; mirrors added later, and
// PropagateUpdatesToMirrors, do not carry it.
func (m *Manager) SetHeader(p packet.Packet) {
	m.mu.Lock()
	m.header = p
	m.hasHeader = true
	mirrors := append([]*instream.Manager(nil), m.mirrors...)
	m.mu.Unlock()

	for _, in := range mirrors {
		in.SetHeader(p)
	}
}

// PropagateUpdatesToMirrors validates shard's emitted packets, pushes them
// in order to every downstream InputStreamManager, and advances each
// mirror's bound. It implements spec.md §4.2.
func (m *Manager) PropagateUpdatesToMirrors(shard *Shard) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return gerrors.FailedPreconditionf("output %q: write to closed stream", m.name)
	}
	oldBound := m.bound

	for _, p := range shard.Packets() {
		ts := p.Timestamp()
		if !ts.IsAllowedInStream() {
			m.mu.Unlock()
			return gerrors.InvalidArgumentf("output %q: packet timestamp %s is not allowed in a stream", m.name, ts)
		}
		if ts < m.bound {
			m.mu.Unlock()
			return gerrors.InvalidArgumentf("output %q: bad timestamp order, %s is below the stream bound %s", m.name, ts, m.bound)
		}
		if m.hasEmitted && ts <= m.lastEmitted {
			m.mu.Unlock()
			return gerrors.InvalidArgumentf("output %q: bad timestamp order, %s did not increase from previous %s", m.name, ts, m.lastEmitted)
		}
		if m.elemType != nil && !m.typeMatchesLocked(p) {
			m.mu.Unlock()
			return gerrors.InvalidArgumentf("output %q: emitted packet type mismatch", m.name)
		}

		m.lastEmitted = ts
		m.hasEmitted = true
		next, err := ts.NextAllowedInStream()
		if err == nil {
			m.bound = next
		}
	}

	if bound, ok := shard.Bound(); ok && bound > m.bound {
		m.bound = bound
	}

	mirrors := append([]*instream.Manager(nil), m.mirrors...)
	observers := append([]observerEntry(nil), m.observers...)
	bound := m.bound
	pkts := append([]packet.Packet(nil), shard.Packets()...)
	m.mu.Unlock()

	for _, in := range mirrors {
		for _, p := range pkts {
			in.Push(p)
		}
		in.SetNextTimestampBound(bound)
	}
	boundAdvanced := bound > oldBound
	for _, e := range observers {
		if len(pkts) == 0 {
			if e.observeBounds && boundAdvanced {
				e.cb(packet.Empty().At(bound))
			}
			continue
		}
		for _, p := range pkts {
			e.cb(p)
		}
	}

	shard.reset()
	return nil
}

func (m *Manager) typeMatchesLocked(p packet.Packet) bool {
	if p.IsEmpty() {
		return true
	}
	v := p.Payload()
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).AssignableTo(m.elemType)
}

// Close marks the stream closed and propagates the terminal bound
// (timestamp.Done) to every mirror. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.bound = timestamp.Done
	mirrors := append([]*instream.Manager(nil), m.mirrors...)
	observers := append([]observerEntry(nil), m.observers...)
	m.mu.Unlock()

	for _, in := range mirrors {
		in.SetNextTimestampBound(timestamp.Done)
		in.Close()
	}
	for _, e := range observers {
		if e.observeBounds {
			e.cb(packet.Empty().At(timestamp.Done))
		}
	}
}

func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) NextTimestampBound() timestamp.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}
