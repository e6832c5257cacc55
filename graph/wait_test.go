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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/calcd/calcd/calculators"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/graphconfig"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func TestWaitUntilIdleRejectsGraphWithSourceNodes(t *testing.T) {
	g := buildGraph(t, &graphconfig.GraphConfig{
		Node: []graphconfig.NodeConfig{
			{
				Name:         "seq",
				Calculator:   "Sequence",
				OutputStream: []string{"out"},
				Options:      map[string]any{"values": []any{1, 2, 3}, "output": "out"},
				SourceLayer:  0,
			},
		},
	})
	require.NoError(t, g.StartRun(nil))
	defer g.WaitUntilDone()

	err := g.WaitUntilIdle()
	require.Error(t, err)
	var st *gerrors.Status
	require.True(t, stderrors.As(err, &st))
	assert.Equal(t, gerrors.FailedPrecondition, st.Code())
}

func TestWaitUntilIdleReturnsOnceQueuesDrainForSourcelessGraph(t *testing.T) {
	g := buildGraph(t, &graphconfig.GraphConfig{
		InputStream: []string{"in"},
		Node: []graphconfig.NodeConfig{
			{
				Name:         "p1",
				Calculator:   "PassThrough",
				InputStream:  []string{"in"},
				OutputStream: []string{"out"},
				Options:      map[string]any{"input": "in", "output": "out"},
			},
		},
	})
	poller, err := g.AddOutputStreamPoller("out", 4)
	require.NoError(t, err)
	defer poller.Close()

	require.NoError(t, g.StartRun(nil))
	require.NoError(t, g.AddPacketToInputStream("in", packet.Of(1).At(timestamp.Timestamp(0))))

	require.NoError(t, g.WaitUntilIdle())

	_, ok := poller.Next(time.Second)
	require.True(t, ok)

	require.NoError(t, g.CloseAllInputStreams())
	require.NoError(t, g.WaitUntilDone())
}
