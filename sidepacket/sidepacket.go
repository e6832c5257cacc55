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

// Package sidepacket implements the read-only key->Packet map visible to
// every node in a run, and the two-phase packet-generator sub-graph that
// produces it.
package sidepacket

import (
	"sync"

	"github.com/calcd/calcd/packet"
)

// Manager is the read-only side-packet set visible to every node for the
// duration of a run. It is populated once (base packets at Initialize,
// per-run packets at StartRun) and never mutated afterward; concurrent
// reads from many node goroutines are safe without further locking once
// a run has started, but Set is still guarded for the population window.
type Manager struct {
	mu   sync.RWMutex
	vals map[string]packet.Packet
}

func NewManager() *Manager {
	return &Manager{vals: make(map[string]packet.Packet)}
}

// Get returns the named side packet, if present.
func (m *Manager) Get(name string) (packet.Packet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.vals[name]
	return p, ok
}

// Set records a side packet produced for name. Used only while populating
// the manager (base packets, then per-run packets); never called again
// once a run's nodes have started reading.
func (m *Manager) Set(name string, p packet.Packet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[name] = p
}

// Merge copies every entry of other into m, overwriting any existing
// names. Used to seed a per-run Manager with the base generators' output.
func (m *Manager) Merge(other *Manager) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range other.vals {
		m.vals[k] = v
	}
}

// Names returns the set of currently-resolved side-packet names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vals))
	for k := range m.vals {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a new, independent Manager sharing the same entries (a
// shallow copy), used to hand each generator invocation a consistent view
// without letting it see packets produced later in the same phase.
func (m *Manager) Snapshot() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := NewManager()
	for k, v := range m.vals {
		cp.vals[k] = v
	}
	return cp
}
