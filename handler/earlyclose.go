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

import "github.com/calcd/calcd/instream"

// EarlyClose wraps another Handler and closes the node as soon as any one
// of its inputs closes, rather than waiting for every input to close (the
// wrapped handler's own Done is never consulted).
type EarlyClose struct {
	base
	Inner Handler
}

func NewEarlyClose(inner Handler) *EarlyClose {
	return &EarlyClose{base: newBase(), Inner: inner}
}

func (h *EarlyClose) Add(name string, in *instream.Manager) {
	h.base.Add(name, in)
	h.Inner.Add(name, in)
}

func (h *EarlyClose) Names() []string { return h.Inner.Names() }

func (h *EarlyClose) NextInputSet() (InputSet, bool) { return h.Inner.NextInputSet() }

func (h *EarlyClose) Done() bool { return h.anyDone() }
