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
	"sync"

	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// Barrier is ready when every input has at least one packet; timestamps
// across inputs are ignored and the i-th item of each input is grouped
// into the i-th invocation. Since real packet timestamps are ignored, the
// delivered Timestamp is a synthetic, strictly increasing counter.
type Barrier struct {
	base

	mu      sync.Mutex
	counter timestamp.Timestamp
}

func NewBarrier() *Barrier {
	return &Barrier{base: newBase(), counter: 0}
}

func (h *Barrier) Done() bool {
	return h.anyDone()
}

func (h *Barrier) NextInputSet() (InputSet, bool) {
	names := h.Names()
	mgrs := h.managers()
	if len(mgrs) == 0 {
		return InputSet{}, false
	}
	for _, m := range mgrs {
		if m.IsEmpty() {
			return InputSet{}, false
		}
	}

	set := InputSet{Packets: make(map[string]packet.Packet, len(names))}
	for i, name := range names {
		p, _ := mgrs[i].Pop()
		set.Packets[name] = p
	}

	h.mu.Lock()
	set.Timestamp = h.counter
	h.counter++
	h.mu.Unlock()

	return set, true
}
