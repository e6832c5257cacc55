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

// Mux is the N-to-1 counterpart of Immediate: it services several
// same-typed candidate inputs (as produced by a demux stage) and, like
// Immediate, delivers whichever has data first rather than waiting for
// alignment. The calculator bound to a Mux handler is responsible for
// picking the surviving value; the handler only ensures each arrival is
// scheduled promptly.
type Mux struct {
	*Immediate
}

func NewMux() *Mux {
	return &Mux{Immediate: NewImmediate()}
}
