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

package graph

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/calcd/calcd/calculators"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/graphconfig"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func TestAsyncObservedOutputSignalsEachDeliveryThenOutOfRangeAfterCancel(t *testing.T) {
	raw := &graphconfig.GraphConfig{
		NumThreads:  4,
		InputStream: []string{"a", "b"},
		Node: []graphconfig.NodeConfig{
			{
				Name: "pa", Calculator: "PassThrough",
				InputStream: []string{"a"}, OutputStream: []string{"outA"},
				Options: map[string]any{"input": "a", "output": "outA"},
			},
			{
				Name: "pb", Calculator: "PassThrough",
				InputStream: []string{"b"}, OutputStream: []string{"outB"},
				Options: map[string]any{"input": "b", "output": "outB"},
			},
		},
	}
	validated, err := graphconfig.Validate(raw)
	require.NoError(t, err)
	g := New(validated)
	require.NoError(t, g.Initialize(nil))

	var gotA, gotB []packet.Packet
	require.NoError(t, g.ObserveOutputStream("outA", func(p packet.Packet) { gotA = append(gotA, p) }, false))
	require.NoError(t, g.ObserveOutputStream("outB", func(p packet.Packet) { gotB = append(gotB, p) }, false))

	require.NoError(t, g.StartRun(nil))

	require.NoError(t, g.AddPacketToInputStream("a", packet.Of(1).At(timestamp.Timestamp(0))))
	require.NoError(t, g.WaitForObservedOutput())
	assert.Len(t, gotA, 1)

	require.NoError(t, g.AddPacketToInputStream("b", packet.Of(2).At(timestamp.Timestamp(0))))
	require.NoError(t, g.WaitForObservedOutput())
	assert.Len(t, gotB, 1)

	g.Cancel()
	require.Error(t, g.WaitUntilDone())

	err = g.WaitForObservedOutput()
	require.Error(t, err)
	var st *gerrors.Status
	require.True(t, stderrors.As(err, &st))
	assert.Equal(t, gerrors.OutOfRange, st.Code())
}

func TestObserveOutputStreamWithTimestampBoundsReportsClosureWithNoPackets(t *testing.T) {
	raw := &graphconfig.GraphConfig{
		NumThreads:  2,
		InputStream: []string{"a"},
		Node: []graphconfig.NodeConfig{
			{
				Name: "pa", Calculator: "PassThrough",
				InputStream: []string{"a"}, OutputStream: []string{"outA"},
				Options: map[string]any{"input": "a", "output": "outA"},
			},
		},
	}
	validated, err := graphconfig.Validate(raw)
	require.NoError(t, err)
	g := New(validated)
	require.NoError(t, g.Initialize(nil))

	var got []packet.Packet
	require.NoError(t, g.ObserveOutputStream("outA", func(p packet.Packet) { got = append(got, p) }, true))

	require.NoError(t, g.StartRun(nil))
	require.NoError(t, g.CloseInputStream("a"))
	require.NoError(t, g.WaitUntilDone())

	require.Len(t, got, 1, "closing a stream that never emitted a packet must still deliver one terminal bound callback")
	assert.True(t, got[0].IsEmpty())
	assert.Equal(t, timestamp.Done, got[0].Timestamp())
}
