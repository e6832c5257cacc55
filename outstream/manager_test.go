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

package outstream

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/instream"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func TestPropagateUpdatesToMirrors(t *testing.T) {
	out := New("out", reflect.TypeOf(""))
	in := instream.New("in", 1, -1)
	out.AddMirror(in)

	shard := out.NewShard()
	shard.AddPacket(packet.Of("a").At(timestamp.Timestamp(0)))
	shard.AddPacket(packet.Of("b").At(timestamp.Timestamp(1)))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))

	p, ok := in.Pop()
	require.True(t, ok)
	v, err := packet.Get[string](p)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	p, ok = in.Pop()
	require.True(t, ok)
	v, _ = packet.Get[string](p)
	assert.Equal(t, "b", v)
}

func TestBadTimestampOrder(t *testing.T) {
	out := New("out", nil)
	shard := out.NewShard()
	shard.AddPacket(packet.Of(1).At(timestamp.Timestamp(5)))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))

	shard2 := out.NewShard()
	shard2.AddPacket(packet.Of(2).At(timestamp.Timestamp(5)))
	err := out.PropagateUpdatesToMirrors(shard2)
	assert.Error(t, err)
}

func TestClosedStreamWrite(t *testing.T) {
	out := New("out", nil)
	out.Close()

	shard := out.NewShard()
	shard.AddPacket(packet.Of(1).At(timestamp.Timestamp(0)))
	err := out.PropagateUpdatesToMirrors(shard)
	assert.Error(t, err)
}

func TestTypeMismatch(t *testing.T) {
	out := New("out", reflect.TypeOf(0))
	shard := out.NewShard()
	shard.AddPacket(packet.Of("not an int").At(timestamp.Timestamp(0)))
	err := out.PropagateUpdatesToMirrors(shard)
	assert.Error(t, err)
}

func TestCloseIsIdempotentAndPropagatesDone(t *testing.T) {
	out := New("out", nil)
	in := instream.New("in", 1, -1)
	out.AddMirror(in)

	out.Close()
	out.Close()

	assert.True(t, in.IsClosed())
	assert.Equal(t, timestamp.Done, in.NextTimestampBound())
}

func TestBoundOnlyShardAdvancesMirrors(t *testing.T) {
	out := New("out", nil)
	in := instream.New("in", 1, -1)
	out.AddMirror(in)

	shard := out.NewShard()
	shard.SetNextTimestampBound(timestamp.Timestamp(10))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))

	assert.Equal(t, timestamp.Timestamp(10), in.NextTimestampBound())
	assert.Equal(t, 0, in.QueueSize())
}

func TestBoundObserverSkippedWhenNotRequested(t *testing.T) {
	out := New("out", nil)
	var got []packet.Packet
	out.AddObserver(func(p packet.Packet) { got = append(got, p) }, false)

	shard := out.NewShard()
	shard.SetNextTimestampBound(timestamp.Timestamp(10))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))
	assert.Empty(t, got, "a bound-only advance must not reach an observer that didn't ask for bounds")

	out.Close()
	assert.Empty(t, got, "Close must not reach an observer that didn't ask for bounds")
}

func TestBoundObserverFiresOnBoundOnlyAdvanceAndOnClose(t *testing.T) {
	out := New("out", nil)
	var got []packet.Packet
	out.AddObserver(func(p packet.Packet) { got = append(got, p) }, true)

	shard := out.NewShard()
	shard.SetNextTimestampBound(timestamp.Timestamp(10))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))
	require.Len(t, got, 1)
	assert.True(t, got[0].IsEmpty())
	assert.Equal(t, timestamp.Timestamp(10), got[0].Timestamp())

	out.Close()
	require.Len(t, got, 2)
	assert.True(t, got[1].IsEmpty())
	assert.Equal(t, timestamp.Done, got[1].Timestamp())
}

func TestBoundObserverDoesNotDoubleFireWhenPacketsAlsoEmitted(t *testing.T) {
	out := New("out", nil)
	var got []packet.Packet
	out.AddObserver(func(p packet.Packet) { got = append(got, p) }, true)

	shard := out.NewShard()
	shard.AddPacket(packet.Of(1).At(timestamp.Timestamp(0)))
	require.NoError(t, out.PropagateUpdatesToMirrors(shard))

	require.Len(t, got, 1)
	assert.False(t, got[0].IsEmpty())
}
