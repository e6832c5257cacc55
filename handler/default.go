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

package handler

import (
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// Default is ready to process timestamp t iff, on every input, either a
// packet with timestamp t is at the head, or the input's bound has
// advanced past t (empty-input semantics). It is the handler every node
// gets unless its config names another.
type Default struct {
	base
}

func NewDefault() *Default {
	return &Default{base: newBase()}
}

func (h *Default) Done() bool {
	return h.allDone()
}

func (h *Default) NextInputSet() (InputSet, bool) {
	mgrs := h.managers()
	if len(mgrs) == 0 {
		return InputSet{}, false
	}

	// Candidate timestamp: the smallest timestamp any input could still
	// deliver at, either its queued head or the point up to which it has
	// guaranteed nothing will arrive.
	t := timestamp.Max
	haveCandidate := false
	for _, m := range mgrs {
		if p, ok := m.Front(); ok {
			if !haveCandidate || p.Timestamp() < t {
				t = p.Timestamp()
				haveCandidate = true
			}
			continue
		}
		if b := m.NextTimestampBound(); !haveCandidate || b < t {
			if !m.IsClosed() && b == timestamp.Unstarted {
				// Nothing known yet on this input; can't pick a candidate.
				continue
			}
			t = b
			haveCandidate = true
		}
	}
	if !haveCandidate {
		return InputSet{}, false
	}

	// Verify every input is resolved at t: either it has a head packet
	// exactly at t, or its bound already passed t so nothing will ever
	// arrive there.
	for _, m := range mgrs {
		if p, ok := m.Front(); ok {
			if p.Timestamp() == t {
				continue
			}
			if p.Timestamp() < t {
				// Shouldn't happen given t is the min, but guard anyway.
				return InputSet{}, false
			}
			// p.Timestamp() > t: this input hasn't ruled out t yet unless
			// its bound already passed t.
			if m.NextTimestampBound() > t {
				continue
			}
			return InputSet{}, false
		}
		if m.NextTimestampBound() > t {
			continue
		}
		if m.IsClosed() {
			continue
		}
		return InputSet{}, false
	}

	set := InputSet{Timestamp: t, Packets: make(map[string]packet.Packet)}
	for i, m := range mgrs {
		name := h.names[i]
		if p, ok := m.Front(); ok && p.Timestamp() == t {
			m.Pop()
			set.Packets[name] = p
		}
	}
	return set, true
}
