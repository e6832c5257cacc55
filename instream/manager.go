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

// Package instream implements the per-input ordered queue and fullness
// bookkeeping a node's InputStreamHandler consults to decide readiness.
package instream

import (
	"sync"

	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// Manager is allocated once at Graph Initialize and never reallocated:
// InputStreamHandlers and the scheduler's throttling bookkeeping hold
// long-lived references to it by pointer.
type Manager struct {
	mu sync.Mutex

	name       string
	nodeID     int
	maxSize    int // -1 = unbounded
	queue      []packet.Packet
	bound      timestamp.Timestamp
	header     packet.Packet
	hasHeader  bool
	closed     bool
	wasFull    bool
	fullHook   func(becameFull bool)
}

// New returns a Manager for the input named name feeding node nodeID, with
// maxSize as its initial queue bound (-1 = unbounded).
func New(name string, nodeID, maxSize int) *Manager {
	return &Manager{
		name:    name,
		nodeID:  nodeID,
		maxSize: maxSize,
		bound:   timestamp.Unstarted,
	}
}

func (m *Manager) Name() string { return m.name }
func (m *Manager) NodeID() int  { return m.nodeID }

// SetFullnessHook registers the callback invoked, outside the manager's
// lock, whenever the queue transitions between "not full" and "full".
// This is how the scheduler learns to throttle/unthrottle upstream.
func (m *Manager) SetFullnessHook(hook func(becameFull bool)) {
	m.mu.Lock()
	m.fullHook = hook
	m.mu.Unlock()
}

// SetMaxQueueSize updates the bound used for fullness transitions; this is
// how the Graph's unthrottle pass raises a deadlocked stream's ceiling.
func (m *Manager) SetMaxQueueSize(n int) {
	m.mu.Lock()
	m.maxSize = n
	becameFull := m.isFullLocked()
	hook, fire := m.fullHook, m.wasFull && !becameFull
	m.wasFull = becameFull
	m.mu.Unlock()

	if fire && hook != nil {
		hook(false)
	}
}

func (m *Manager) MaxQueueSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSize
}

func (m *Manager) isFullLocked() bool {
	return m.maxSize >= 0 && len(m.queue) >= m.maxSize
}

// SetHeader sets the stream's header packet once, before any data arrives.
func (m *Manager) SetHeader(p packet.Packet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header = p
	m.hasHeader = true
}

func (m *Manager) Header() (packet.Packet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header, m.hasHeader
}

// Push enqueues p (already bound-checked by the producing
// OutputStreamManager) and fires the fullness hook if the queue just
// became full.
func (m *Manager) Push(p packet.Packet) {
	var hook func(becameFull bool)
	var fire bool

	m.mu.Lock()
	m.queue = append(m.queue, p)
	if p.Timestamp() >= m.bound {
		next, err := p.Timestamp().NextAllowedInStream()
		if err == nil {
			m.bound = next
		}
	}
	becameFull := m.isFullLocked()
	if becameFull && !m.wasFull {
		fire = true
		hook = m.fullHook
	}
	m.wasFull = becameFull
	m.mu.Unlock()

	if fire && hook != nil {
		hook(true)
	}
}

// SetNextTimestampBound advances the bound without enqueuing a packet.
func (m *Manager) SetNextTimestampBound(t timestamp.Timestamp) {
	m.mu.Lock()
	if t > m.bound {
		m.bound = t
	}
	m.mu.Unlock()
}

func (m *Manager) NextTimestampBound() timestamp.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}

// Front returns the head packet without removing it.
func (m *Manager) Front() (packet.Packet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return packet.Packet{}, false
	}
	return m.queue[0], true
}

// Pop removes and returns the head packet, firing the fullness hook if the
// queue just dropped below its ceiling.
func (m *Manager) Pop() (packet.Packet, bool) {
	var hook func(becameFull bool)
	var fire bool

	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return packet.Packet{}, false
	}
	p := m.queue[0]
	m.queue = m.queue[1:]
	becameFull := m.isFullLocked()
	if !becameFull && m.wasFull {
		fire = true
		hook = m.fullHook
	}
	m.wasFull = becameFull
	m.mu.Unlock()

	if fire && hook != nil {
		hook(false)
	}
	return p, true
}

func (m *Manager) QueueSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Manager) IsEmpty() bool {
	return m.QueueSize() == 0
}

func (m *Manager) IsFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isFullLocked()
}

// Close marks the stream closed; idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Done reports whether the stream is closed and fully drained: the point
// at which a node waiting on this input should stop expecting more data.
func (m *Manager) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed && len(m.queue) == 0
}
