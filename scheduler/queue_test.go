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

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/executor"
	"github.com/calcd/calcd/handler"
	"github.com/calcd/calcd/node"
)

// inlineExecutor runs every scheduled closure synchronously on Schedule,
// so tests can drive the Queue deterministically without goroutines.
type inlineExecutor struct{}

func (inlineExecutor) Schedule(fn func()) { fn() }
func (inlineExecutor) Stop()              {}

var _ executor.Executor = inlineExecutor{}

type noopCalc struct{}

func (noopCalc) GetContract() calculator.Contract          { return calculator.Contract{} }
func (noopCalc) Open(calculator.Context) error              { return nil }
func (noopCalc) Process(calculator.Context) error           { return nil }
func (noopCalc) Close(calculator.Context, error) error      { return nil }

func testNode(id int, isSource bool, layer int) *node.Node {
	n := node.New(id, "n", isSource, noopCalc{}, handler.NewImmediate(), nil, nil, nil)
	n.SourceLayer = layer
	return n
}

// orderSettingCalc calls SetSourceProcessOrder during Open, the only way a
// calculator can influence its node's SchedulerQueue tie-breaker.
type orderSettingCalc struct{ order int64 }

func (c orderSettingCalc) GetContract() calculator.Contract { return calculator.Contract{} }
func (c orderSettingCalc) Open(ctx calculator.Context) error {
	return ctx.SetSourceProcessOrder(c.order)
}
func (orderSettingCalc) Process(calculator.Context) error      { return nil }
func (orderSettingCalc) Close(calculator.Context, error) error { return nil }

func sourceNodeWithOrder(t *testing.T, id int, layer int, order int64) *node.Node {
	t.Helper()
	n := node.New(id, "src", true, orderSettingCalc{order: order}, handler.NewImmediate(), nil, nil, nil)
	n.SourceLayer = layer
	require.NoError(t, n.Open())
	return n
}

func TestLessOpenBeforeProcess(t *testing.T) {
	open := Item{Kind: KindOpen, Node: testNode(5, false, 0)}
	proc := Item{Kind: KindProcess, Node: testNode(1, false, 0)}
	assert.True(t, less(open, proc))
	assert.False(t, less(proc, open))
}

func TestLessOpenOrdersByLowerID(t *testing.T) {
	a := Item{Kind: KindOpen, Node: testNode(1, false, 0)}
	b := Item{Kind: KindOpen, Node: testNode(2, false, 0)}
	assert.True(t, less(a, b))
	assert.False(t, less(b, a))
}

func TestLessProcessNonSourceBeforeSource(t *testing.T) {
	nonSource := Item{Kind: KindProcess, Node: testNode(10, false, 0)}
	source := Item{Kind: KindProcess, Node: testNode(1, true, 0)}
	assert.True(t, less(nonSource, source))
}

func TestLessProcessNonSourceHigherIDFirst(t *testing.T) {
	hi := Item{Kind: KindProcess, Node: testNode(9, false, 0)}
	lo := Item{Kind: KindProcess, Node: testNode(1, false, 0)}
	assert.True(t, less(hi, lo))
	assert.False(t, less(lo, hi))
}

func TestLessProcessSourceOrdersByLayerThenOrderThenID(t *testing.T) {
	layer0 := sourceNodeWithOrder(t, 5, 0, 10)
	layer1 := sourceNodeWithOrder(t, 1, 1, 10)
	assert.True(t, less(Item{Kind: KindProcess, Node: layer0}, Item{Kind: KindProcess, Node: layer1}))

	sameLayerLowOrder := sourceNodeWithOrder(t, 9, 0, 1)
	sameLayerHighOrder := sourceNodeWithOrder(t, 2, 0, 2)
	assert.True(t, less(Item{Kind: KindProcess, Node: sameLayerLowOrder}, Item{Kind: KindProcess, Node: sameLayerHighOrder}))

	tieA := sourceNodeWithOrder(t, 1, 0, 5)
	tieB := sourceNodeWithOrder(t, 2, 0, 5)
	assert.True(t, less(Item{Kind: KindProcess, Node: tieA}, Item{Kind: KindProcess, Node: tieB}))
}

func TestQueueOrdersTasksByPriority(t *testing.T) {
	var ran []string
	onResult := func(res Result) {
		ran = append(ran, res.Item.Kind.String())
	}

	q := NewQueue(inlineExecutor{}, onResult, nil)
	q.SetRunning(false) // queue without draining yet

	q.AddItem(Item{Kind: KindProcess, Node: testNode(1, false, 0)})
	q.AddItem(Item{Kind: KindOpen, Node: testNode(2, false, 0)})

	assert.Equal(t, 2, q.NumTasksWaiting())

	q.RunNextTask()
	q.RunNextTask()

	assert.Equal(t, []string{"Open", "Process"}, ran)
}

func TestQueueAddItemRunsImmediatelyWhenRunning(t *testing.T) {
	done := make(chan struct{}, 1)
	q := NewQueue(inlineExecutor{}, func(Result) { done <- struct{}{} }, nil)
	q.SetRunning(true)

	q.AddItem(Item{Kind: KindOpen, Node: testNode(1, false, 0)})

	select {
	case <-done:
	default:
		t.Fatal("expected task to run synchronously under inlineExecutor")
	}
	assert.True(t, q.IsIdle())
}

func TestQueueIsIdleInitially(t *testing.T) {
	q := NewQueue(inlineExecutor{}, nil, nil)
	assert.True(t, q.IsIdle())
}

func TestQueueOnIdleFiresOnceDrained(t *testing.T) {
	idleCount := 0
	q := NewQueue(inlineExecutor{}, nil, func() { idleCount++ })
	q.SetRunning(true)

	q.AddItem(Item{Kind: KindOpen, Node: testNode(1, false, 0)})
	assert.Equal(t, 1, idleCount)
}

func TestQueueSetRunningFlushesPendingOnResume(t *testing.T) {
	var ranCount int
	q := NewQueue(inlineExecutor{}, func(Result) { ranCount++ }, nil)
	q.SetRunning(false)

	q.AddItem(Item{Kind: KindOpen, Node: testNode(1, false, 0)})
	q.AddItem(Item{Kind: KindOpen, Node: testNode(2, false, 0)})
	assert.Equal(t, 0, ranCount)

	q.SetRunning(true)
	assert.Equal(t, 2, ranCount)
}
