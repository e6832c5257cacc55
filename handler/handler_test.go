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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func TestDefaultAlignsOnMatchingTimestamps(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewDefault()
	h.Add("a", a)
	h.Add("b", b)

	a.Push(packet.Of(1).At(timestamp.Timestamp(0)))
	b.Push(packet.Of("x").At(timestamp.Timestamp(0)))

	set, ok := h.NextInputSet()
	require.True(t, ok)
	assert.Equal(t, timestamp.Timestamp(0), set.Timestamp)
	assert.Len(t, set.Packets, 2)
}

func TestDefaultWaitsForMissingInput(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewDefault()
	h.Add("a", a)
	h.Add("b", b)

	a.Push(packet.Of(1).At(timestamp.Timestamp(0)))
	_, ok := h.NextInputSet()
	assert.False(t, ok)
}

func TestDefaultEmptyInputSatisfiedByBound(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewDefault()
	h.Add("a", a)
	h.Add("b", b)

	a.Push(packet.Of(1).At(timestamp.Timestamp(0)))
	b.SetNextTimestampBound(timestamp.Timestamp(1))

	set, ok := h.NextInputSet()
	require.True(t, ok)
	assert.Equal(t, timestamp.Timestamp(0), set.Timestamp)
	assert.Len(t, set.Packets, 1)
	_, hasB := set.Packets["b"]
	assert.False(t, hasB)
}

func TestImmediateDeliversIndependently(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewImmediate()
	h.Add("a", a)
	h.Add("b", b)

	b.Push(packet.Of("x").At(timestamp.Timestamp(5)))

	set, ok := h.NextInputSet()
	require.True(t, ok)
	assert.Equal(t, timestamp.Timestamp(5), set.Timestamp)
	assert.Len(t, set.Packets, 1)
}

func TestBarrierGroupsIthItems(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewBarrier()
	h.Add("a", a)
	h.Add("b", b)

	a.Push(packet.Of(1).At(timestamp.Timestamp(100)))
	_, ok := h.NextInputSet()
	assert.False(t, ok)

	b.Push(packet.Of("x").At(timestamp.Timestamp(7)))
	set, ok := h.NextInputSet()
	require.True(t, ok)
	assert.Equal(t, timestamp.Timestamp(0), set.Timestamp)
	assert.Len(t, set.Packets, 2)
}

func TestEarlyCloseFiresOnFirstClosedInput(t *testing.T) {
	a := instream.New("a", 1, -1)
	b := instream.New("b", 1, -1)

	h := NewEarlyClose(NewDefault())
	h.Add("a", a)
	h.Add("b", b)

	assert.False(t, h.Done())
	a.Close()
	assert.True(t, h.Done())
}
