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

// FixedSize wraps Default but caps every input's effective backlog: each
// time NextInputSet runs, an input holding more than Capacity unconsumed
// packets has its oldest ones dropped. The input's own max queue size
// still applies, so the producer can be throttled before any drop
// happens. This is the explicit drop path spec.md §8 allows packets to be
// discarded through.
type FixedSize struct {
	*Default
	Capacity int
}

func NewFixedSize(capacity int) *FixedSize {
	if capacity <= 0 {
		capacity = 1
	}
	return &FixedSize{Default: NewDefault(), Capacity: capacity}
}

func (h *FixedSize) NextInputSet() (InputSet, bool) {
	for _, m := range h.managers() {
		for m.QueueSize() > h.Capacity {
			m.Pop()
		}
	}
	return h.Default.NextInputSet()
}
