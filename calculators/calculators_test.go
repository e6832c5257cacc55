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

package calculators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

// fakeContext is a minimal calculator.Context for exercising one
// calculator's Process call in isolation, without a live node/stream
// graph behind it.
type fakeContext struct {
	ts      timestamp.Timestamp
	inputs  map[string]packet.Packet
	outputs map[string]packet.Packet
	opening bool
}

func newFakeContext(ts timestamp.Timestamp, inputs map[string]packet.Packet) *fakeContext {
	return &fakeContext{ts: ts, inputs: inputs, outputs: map[string]packet.Packet{}}
}

func (c *fakeContext) Input(name string) (packet.Packet, bool) {
	p, ok := c.inputs[name]
	return p, ok
}

func (c *fakeContext) Output(name string, p packet.Packet) error {
	if p.Timestamp() == timestamp.Unset {
		p = p.At(c.ts)
	}
	c.outputs[name] = p
	return nil
}

func (c *fakeContext) SidePacket(string) (packet.Packet, bool) { return packet.Packet{}, false }
func (c *fakeContext) SetOffset(int64) error                   { return nil }
func (c *fakeContext) SetSourceProcessOrder(int64) error       { return nil }

func TestPassThroughForwardsPacketUnchanged(t *testing.T) {
	calc := passThrough{}
	in := packet.Of("Hello World!").At(timestamp.Timestamp(3))
	ctx := newFakeContext(in.Timestamp(), map[string]packet.Packet{"in": in})

	require.NoError(t, calc.Process(ctx))

	out := ctx.outputs["out"]
	v, err := packet.Get[string](out)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", v)
	assert.Equal(t, timestamp.Timestamp(3), out.Timestamp())
}

func TestSequenceEmitsThenStops(t *testing.T) {
	f, err := calculator.Get("Sequence")
	require.NoError(t, err)
	calc, err := f(common.Options{"values": []any{10, 20, 30}})
	require.NoError(t, err)

	for i, want := range []int{10, 20, 30} {
		ctx := newFakeContext(timestamp.Unstarted, nil)
		require.NoError(t, calc.Process(ctx))
		out := ctx.outputs["out"]
		v, err := packet.Get[int](out)
		require.NoError(t, err)
		assert.Equal(t, want, v)
		assert.Equal(t, timestamp.Timestamp(i), out.Timestamp())
	}

	ctx := newFakeContext(timestamp.Unstarted, nil)
	err = calc.Process(ctx)
	assert.True(t, gerrors.IsStop(err))
}

func TestAdderSumsSynchronizedInputs(t *testing.T) {
	calc := adder{}
	ctx := newFakeContext(timestamp.Timestamp(2), map[string]packet.Packet{
		"addend":  packet.Of(3).At(timestamp.Timestamp(2)),
		"delayed": packet.Of(6).At(timestamp.Timestamp(2)),
	})
	require.NoError(t, calc.Process(ctx))
	v, err := packet.Get[int](ctx.outputs["sum"])
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestUnitDelayEmitsInitialValueOnOpen(t *testing.T) {
	f, err := calculator.Get("UnitDelay")
	require.NoError(t, err)
	calc, err := f(common.Options{"initial": 0})
	require.NoError(t, err)

	ctx := newFakeContext(timestamp.Unstarted, nil)
	require.NoError(t, calc.Open(ctx))
	out := ctx.outputs["out"]
	v, err := packet.Get[int](out)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	assert.Equal(t, timestamp.Timestamp(0), out.Timestamp())
}

func TestUnitDelayShiftsTimestampForward(t *testing.T) {
	calc := &unitDelay{}
	ctx := newFakeContext(timestamp.Timestamp(4), map[string]packet.Packet{
		"in": packet.Of(7).At(timestamp.Timestamp(4)),
	})
	require.NoError(t, calc.Process(ctx))
	out := ctx.outputs["out"]
	assert.Equal(t, timestamp.Timestamp(5), out.Timestamp())
}

func TestCycleSumSequenceMatchesAccumulation(t *testing.T) {
	add := adder{}
	delay := &unitDelay{}

	delayed := map[timestamp.Timestamp]int{0: 0}
	want := []int{1, 3, 6, 10, 15}

	for i, v := range []int{1, 2, 3, 4, 5} {
		ts := timestamp.Timestamp(i)
		ctx := newFakeContext(ts, map[string]packet.Packet{
			"addend":  packet.Of(v).At(ts),
			"delayed": packet.Of(delayed[ts]).At(ts),
		})
		require.NoError(t, add.Process(ctx))
		sum, err := packet.Get[int](ctx.outputs["sum"])
		require.NoError(t, err)
		assert.Equal(t, want[i], sum)

		delayCtx := newFakeContext(ts, map[string]packet.Packet{
			"in": packet.Of(sum).At(ts),
		})
		require.NoError(t, delay.Process(delayCtx))
		next := delayCtx.outputs["out"]
		nv, err := packet.Get[int](next)
		require.NoError(t, err)
		delayed[next.Timestamp()] = nv
	}
}

func TestSwitchRoutesBySelect(t *testing.T) {
	calc := switchCalc{}

	ctx := newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{
		"in":     packet.Of(5).At(timestamp.Timestamp(0)),
		"select": packet.Of(0).At(timestamp.Timestamp(0)),
	})
	require.NoError(t, calc.Process(ctx))
	_, onZero := ctx.outputs["zero"]
	_, onOne := ctx.outputs["one"]
	assert.True(t, onZero)
	assert.False(t, onOne)

	ctx = newFakeContext(timestamp.Timestamp(1), map[string]packet.Packet{
		"in":     packet.Of(7).At(timestamp.Timestamp(1)),
		"select": packet.Of(1).At(timestamp.Timestamp(1)),
	})
	require.NoError(t, calc.Process(ctx))
	_, onZero = ctx.outputs["zero"]
	_, onOne = ctx.outputs["one"]
	assert.False(t, onZero)
	assert.True(t, onOne)
}

func TestMapIntDoubleAndSquare(t *testing.T) {
	f, err := calculator.Get("MapInt")
	require.NoError(t, err)

	double, err := f(common.Options{"op": "double"})
	require.NoError(t, err)
	ctx := newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{"in": packet.Of(4).At(timestamp.Timestamp(0))})
	require.NoError(t, double.Process(ctx))
	v, err := packet.Get[int](ctx.outputs["out"])
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	square, err := f(common.Options{"op": "square"})
	require.NoError(t, err)
	ctx = newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{"in": packet.Of(5).At(timestamp.Timestamp(0))})
	require.NoError(t, square.Process(ctx))
	v, err = packet.Get[int](ctx.outputs["out"])
	require.NoError(t, err)
	assert.Equal(t, 25, v)
}

func TestMapIntRejectsUnknownOp(t *testing.T) {
	f, err := calculator.Get("MapInt")
	require.NoError(t, err)
	_, err = f(common.Options{"op": "cube"})
	assert.Error(t, err)
}

func TestDecimatorKeepsEveryNth(t *testing.T) {
	f, err := calculator.Get("Decimator")
	require.NoError(t, err)
	calc, err := f(common.Options{"keep_every": 3})
	require.NoError(t, err)

	var kept []int
	for i := 0; i < 9; i++ {
		ctx := newFakeContext(timestamp.Timestamp(i), map[string]packet.Packet{
			"in": packet.Of(i).At(timestamp.Timestamp(i)),
		})
		require.NoError(t, calc.Process(ctx))
		if out, ok := ctx.outputs["out"]; ok {
			v, err := packet.Get[int](out)
			require.NoError(t, err)
			kept = append(kept, v)
		}
	}
	assert.Equal(t, []int{0, 3, 6}, kept)
}

func TestMergerForwardsAndDropsStaleDuplicates(t *testing.T) {
	f, err := calculator.Get("Merger")
	require.NoError(t, err)
	calc, err := f(common.Options{"count": 2})
	require.NoError(t, err)

	ctx := newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{
		"in0": packet.Of("a").At(timestamp.Timestamp(1)),
	})
	require.NoError(t, calc.Process(ctx))
	v, err := packet.Get[string](ctx.outputs["out"])
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// A duplicate/stale timestamp on the other input is dropped.
	ctx = newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{
		"in1": packet.Of("b").At(timestamp.Timestamp(1)),
	})
	require.NoError(t, calc.Process(ctx))
	_, ok := ctx.outputs["out"]
	assert.False(t, ok)

	// A strictly later timestamp forwards normally.
	ctx = newFakeContext(timestamp.Timestamp(0), map[string]packet.Packet{
		"in1": packet.Of("c").At(timestamp.Timestamp(2)),
	})
	require.NoError(t, calc.Process(ctx))
	v, err = packet.Get[string](ctx.outputs["out"])
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestMergerRejectsNonPositiveCount(t *testing.T) {
	f, err := calculator.Get("Merger")
	require.NoError(t, err)
	_, err = f(common.Options{"count": 0})
	assert.Error(t, err)
}
