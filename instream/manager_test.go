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

package instream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func TestFullnessTransitions(t *testing.T) {
	m := New("in", 1, 2)

	var events []bool
	m.SetFullnessHook(func(full bool) {
		events = append(events, full)
	})

	m.Push(packet.Of(1).At(timestamp.Timestamp(0)))
	assert.Empty(t, events)

	m.Push(packet.Of(2).At(timestamp.Timestamp(1)))
	require.Len(t, events, 1)
	assert.True(t, events[0])

	_, ok := m.Pop()
	require.True(t, ok)
	require.Len(t, events, 2)
	assert.False(t, events[1])
}

func TestUnboundedNeverFull(t *testing.T) {
	m := New("in", 1, -1)
	for i := 0; i < 1000; i++ {
		m.Push(packet.Of(i).At(timestamp.Timestamp(i)))
	}
	assert.False(t, m.IsFull())
}

func TestCloseIdempotent(t *testing.T) {
	m := New("in", 1, -1)
	m.Close()
	m.Close()
	assert.True(t, m.IsClosed())
}

func TestDoneRequiresDrain(t *testing.T) {
	m := New("in", 1, -1)
	m.Push(packet.Of(1).At(timestamp.Timestamp(0)))
	m.Close()
	assert.False(t, m.Done())

	m.Pop()
	assert.True(t, m.Done())
}
