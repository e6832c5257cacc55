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

// Immediate is ready as soon as any input has data; each input is
// delivered independently of the others and timestamps across inputs
// need not align.
type Immediate struct {
	base
}

func NewImmediate() *Immediate {
	return &Immediate{base: newBase()}
}

func (h *Immediate) Done() bool {
	return h.allDone()
}

func (h *Immediate) NextInputSet() (InputSet, bool) {
	names := h.Names()
	mgrs := h.managers()
	for i, name := range names {
		m := mgrs[i]
		if p, ok := m.Front(); ok {
			m.Pop()
			return InputSet{
				Timestamp: p.Timestamp(),
				Packets:   map[string]packet.Packet{name: p},
			}, true
		}
	}
	return InputSet{}, false
}
