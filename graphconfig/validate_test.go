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

package graphconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/gerrors"
)

type noopCalc struct{}

func (noopCalc) GetContract() calculator.Contract          { return calculator.Contract{} }
func (noopCalc) Open(calculator.Context) error              { return nil }
func (noopCalc) Process(calculator.Context) error           { return nil }
func (noopCalc) Close(calculator.Context, error) error      { return nil }

func init() {
	calculator.Register("PassThroughCalculator", func(common.Options) (calculator.Calculator, error) {
		return noopCalc{}, nil
	})
	calculator.Register("AdderCalculator", func(common.Options) (calculator.Calculator, error) {
		return noopCalc{}, nil
	})
}

func TestValidateOrdersNodesByStreamDependency(t *testing.T) {
	raw := &GraphConfig{
		InputStream:  []string{"in"},
		OutputStream: []string{"out"},
		Node: []NodeConfig{
			{Name: "second", Calculator: "PassThroughCalculator", InputStream: []string{"mid"}, OutputStream: []string{"out"}},
			{Name: "first", Calculator: "PassThroughCalculator", InputStream: []string{"in"}, OutputStream: []string{"mid"}},
		},
	}

	g, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "first", g.Nodes[0].Name)
	assert.Equal(t, "second", g.Nodes[1].Name)
	assert.False(t, g.Nodes[0].IsSource)
	assert.False(t, g.Nodes[1].IsSource)
}

func TestValidateAllowsDeclaredBackEdge(t *testing.T) {
	raw := &GraphConfig{
		InputStream: []string{"in"},
		Node: []NodeConfig{
			{
				Name:                "adder",
				Calculator:          "AdderCalculator",
				InputStream:         []string{"in", "loop"},
				OutputStream:        []string{"loop"},
				BackEdgeInputStream: []string{"loop"},
			},
		},
	}

	g, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "adder", g.Nodes[0].Name)
}

func TestValidateRejectsUndeclaredCycle(t *testing.T) {
	raw := &GraphConfig{
		Node: []NodeConfig{
			{Name: "a", Calculator: "PassThroughCalculator", InputStream: []string{"y"}, OutputStream: []string{"x"}},
			{Name: "b", Calculator: "PassThroughCalculator", InputStream: []string{"x"}, OutputStream: []string{"y"}},
		},
	}

	_, err := Validate(raw)
	require.Error(t, err)
	var st *gerrors.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, gerrors.InvalidArgument, st.Code())
}

func TestValidateRejectsUnknownCalculator(t *testing.T) {
	raw := &GraphConfig{
		Node: []NodeConfig{{Name: "x", Calculator: "DoesNotExist"}},
	}
	_, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateNodeName(t *testing.T) {
	raw := &GraphConfig{
		Node: []NodeConfig{
			{Name: "dup", Calculator: "PassThroughCalculator"},
			{Name: "dup", Calculator: "PassThroughCalculator"},
		},
	}
	_, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateStreamProducer(t *testing.T) {
	raw := &GraphConfig{
		Node: []NodeConfig{
			{Name: "a", Calculator: "PassThroughCalculator", OutputStream: []string{"out"}},
			{Name: "b", Calculator: "PassThroughCalculator", OutputStream: []string{"out"}},
		},
	}
	_, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateAppliesDefaultMaxQueueSize(t *testing.T) {
	g, err := Validate(&GraphConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxQueueSize, g.MaxQueueSize)
}
