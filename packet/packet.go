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

// Package packet defines the immutable, type-erased, timestamped value
// passed between calculators. A Packet's payload is never mutated after
// emission, so sharing one across downstream queues and observers is safe
// without copying.
package packet

import (
	"fmt"

	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/internal/json"
	"github.com/calcd/calcd/timestamp"
)

// Packet is a logically immutable (type tag, payload, timestamp) triple.
// The zero value IsEmpty and carries timestamp 0; Of and Empty stamp
// timestamp.Unset instead.
type Packet struct {
	payload any
	ts      timestamp.Timestamp
}

// Of constructs a Packet carrying v, stamped with timestamp.Unset. Use At
// to bind a timestamp before handing the packet to a stream.
func Of(v any) Packet {
	return Packet{payload: v, ts: timestamp.Unset}
}

// Empty returns a payload-less packet stamped with timestamp.Unset, used
// purely to carry a bound forward via At.
func Empty() Packet {
	return Packet{ts: timestamp.Unset}
}

// At returns a new Packet sharing this one's payload but stamped with t.
// It never mutates the receiver.
func (p Packet) At(t timestamp.Timestamp) Packet {
	return Packet{payload: p.payload, ts: t}
}

// Timestamp returns the packet's timestamp.
func (p Packet) Timestamp() timestamp.Timestamp {
	return p.ts
}

// IsEmpty reports whether the packet carries no payload.
func (p Packet) IsEmpty() bool {
	return p.payload == nil
}

// Get returns the payload asserted to type T. It fails with TypeMismatch
// (as an InvalidArgument-coded *gerrors.Status) if the runtime type of the
// payload does not match T.
func Get[T any](p Packet) (T, error) {
	var zero T
	if p.payload == nil {
		return zero, gerrors.FailedPreconditionf("packet is empty")
	}
	v, ok := p.payload.(T)
	if !ok {
		return zero, gerrors.InvalidArgumentf("packet type mismatch: want %T, have %T", zero, p.payload)
	}
	return v, nil
}

// MustGet is Get without the error return, for callers that already know
// the type statically holds (e.g. right after constructing the packet).
func MustGet[T any](p Packet) T {
	v, err := Get[T](p)
	if err != nil {
		panic(err)
	}
	return v
}

// Payload returns the raw, untyped payload for callers (such as output
// type-checking) that must not assert a concrete type.
func (p Packet) Payload() any {
	return p.payload
}

// DebugString renders the packet for logs/introspection routes, JSON
// encoding the payload when possible and falling back to %v.
func (p Packet) DebugString() string {
	if p.IsEmpty() {
		return fmt.Sprintf("Packet{ts=%s, empty}", p.ts)
	}
	b, err := json.Marshal(p.payload)
	if err != nil {
		return fmt.Sprintf("Packet{ts=%s, payload=%v}", p.ts, p.payload)
	}
	return fmt.Sprintf("Packet{ts=%s, payload=%s}", p.ts, b)
}
