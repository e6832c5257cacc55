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

import "github.com/calcd/calcd/packet"

// TimestampAlign delivers one input set per packet on a designated
// Primary input, pairing it with the most recent packet at or before the
// same timestamp on every other input (discarding any older, now
// unreachable packets on those inputs as it goes).
type TimestampAlign struct {
	base
	Primary string
}

func NewTimestampAlign(primary string) *TimestampAlign {
	return &TimestampAlign{base: newBase(), Primary: primary}
}

func (h *TimestampAlign) Done() bool {
	return h.allDone()
}

func (h *TimestampAlign) NextInputSet() (InputSet, bool) {
	names := h.Names()
	mgrs := h.managers()

	var primaryIdx = -1
	for i, n := range names {
		if n == h.Primary {
			primaryIdx = i
		}
	}
	if primaryIdx < 0 {
		return InputSet{}, false
	}

	pm := mgrs[primaryIdx]
	pp, ok := pm.Front()
	if !ok {
		return InputSet{}, false
	}
	t := pp.Timestamp()

	// Every secondary input must either have a packet at/before t already
	// queued, or have advanced its bound past t, or be closed, before we
	// can commit to delivering at t.
	for i, m := range mgrs {
		if i == primaryIdx {
			continue
		}
		if _, ok := m.Front(); !ok && m.NextTimestampBound() <= t && !m.IsClosed() {
			return InputSet{}, false
		}
	}

	pm.Pop()
	set := InputSet{Timestamp: t, Packets: map[string]packet.Packet{h.Primary: pp}}
	for i, name := range names {
		if i == primaryIdx {
			continue
		}
		m := mgrs[i]
		var latest packet.Packet
		found := false
		for {
			sp, ok := m.Front()
			if !ok || sp.Timestamp() > t {
				break
			}
			latest = sp
			found = true
			m.Pop()
		}
		if found {
			set.Packets[name] = latest
		}
	}
	return set, true
}
