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

// Package timestamp defines the totally ordered time coordinate used to
// stamp every packet flowing through the graph.
package timestamp

import (
	"fmt"
	"math"

	"github.com/calcd/calcd/gerrors"
)

// Timestamp is a signed 64-bit ordered coordinate. Ordinary values are
// produced by calculators; the sentinel values below carry special
// meaning to stream bookkeeping.
type Timestamp int64

const (
	// Unset marks a packet that was never stamped. Streams reject it.
	Unset Timestamp = math.MinInt64

	// Min is the smallest ordinary timestamp a packet may carry.
	Min Timestamp = math.MinInt64 + 3

	// PreStream may appear at most once per stream, before any ordinary
	// timestamp.
	PreStream Timestamp = math.MinInt64 + 2

	// Unstarted is used as a default SourceProcessOrder and as the bound
	// of a stream that has not yet produced anything.
	Unstarted Timestamp = math.MinInt64 + 1

	// Max is the largest ordinary timestamp a packet may carry.
	Max Timestamp = math.MaxInt64 - 3

	// PostStream may appear at most once per stream, after every ordinary
	// timestamp.
	PostStream Timestamp = math.MaxInt64 - 2

	// OneOverPostStream is the bound that indicates a stream will never
	// produce anything else, including PostStream.
	OneOverPostStream Timestamp = math.MaxInt64 - 1

	// Done is the terminal bound propagated to a stream's consumers on
	// close.
	Done Timestamp = math.MaxInt64
)

// String renders sentinels symbolically and ordinary values numerically.
func (t Timestamp) String() string {
	switch t {
	case Unset:
		return "Unset"
	case Min:
		return "Min"
	case PreStream:
		return "PreStream"
	case Unstarted:
		return "Unstarted"
	case Max:
		return "Max"
	case PostStream:
		return "PostStream"
	case OneOverPostStream:
		return "OneOverPostStream"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("%d", int64(t))
	}
}

// IsSpecialValue reports whether t is one of the named sentinels rather
// than an ordinary streamable value.
func (t Timestamp) IsSpecialValue() bool {
	switch t {
	case Unset, Min, PreStream, Unstarted, Max, PostStream, OneOverPostStream, Done:
		return true
	default:
		return false
	}
}

// IsAllowedInStream reports whether a packet may legally carry t.
func (t Timestamp) IsAllowedInStream() bool {
	switch t {
	case Unset, Unstarted, OneOverPostStream, Done:
		return false
	default:
		return true
	}
}

// Value returns the raw int64 value, matching the original's Value().
func (t Timestamp) Value() int64 { return int64(t) }

// NextAllowedInStream returns the smallest timestamp that may legally
// follow t on the same stream. It errors (InvalidArgument) only
// when asked to advance past Done, since no timestamp follows the
// terminal bound.
func (t Timestamp) NextAllowedInStream() (Timestamp, error) {
	switch t {
	case Unset:
		return Min, nil
	case PreStream:
		return Min, nil
	case Unstarted:
		return Min, nil
	case Max:
		return PostStream, nil
	case PostStream:
		return OneOverPostStream, nil
	case OneOverPostStream:
		return Done, nil
	case Done:
		return Unset, gerrors.InvalidArgumentf("cannot advance past Timestamp::Done")
	default:
		if t >= Max {
			return PostStream, nil
		}
		return t + 1, nil
	}
}
