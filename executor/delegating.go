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

package executor

// Delegating forwards every scheduled closure to a user-supplied sink,
// for callers embedding the graph into an existing thread-pool or event
// loop of their own.
type Delegating struct {
	Sink func(fn func())
}

func NewDelegating(sink func(fn func())) *Delegating {
	return &Delegating{Sink: sink}
}

func (d *Delegating) Schedule(fn func()) {
	d.Sink(fn)
}

func (d *Delegating) Stop() {}
