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

package graphsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/calcd/calcd/calculators"
	"github.com/calcd/calcd/graph"
	"github.com/calcd/calcd/graphconfig"
)

func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	raw := &graphconfig.GraphConfig{
		NumThreads:  1,
		InputStream: []string{"in"},
		Node: []graphconfig.NodeConfig{
			{
				Name:         "p1",
				Calculator:   "PassThrough",
				InputStream:  []string{"in"},
				OutputStream: []string{"out"},
			},
		},
	}
	validated, err := graphconfig.Validate(raw)
	require.NoError(t, err)
	g := graph.New(validated)
	require.NoError(t, g.Initialize(nil))
	return g
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	s := New(Config{Enabled: false}, newTestGraph(t))
	assert.Nil(t, s)
}

func TestRouteGraphDumpsNodeStates(t *testing.T) {
	g := newTestGraph(t)
	s := New(Config{Enabled: true, Address: "127.0.0.1:0"}, g)
	require.NotNil(t, s)

	req := httptest.NewRequest(http.MethodGet, "/-/graph", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"p1"`)
	assert.Contains(t, rec.Body.String(), `"PassThrough"`)
}

func TestRouteLoggerAcceptsLevel(t *testing.T) {
	g := newTestGraph(t)
	s := New(Config{Enabled: true, Address: "127.0.0.1:0"}, g)
	require.NotNil(t, s)

	req := httptest.NewRequest(http.MethodPost, "/-/logger?level=warn", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "success")
}

func TestRouteCancelCancelsTheRunningGraph(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.StartRun(nil))
	s := New(Config{Enabled: true, Address: "127.0.0.1:0"}, g)
	require.NotNil(t, s)

	req := httptest.NewRequest(http.MethodPost, "/-/cancel", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Error(t, g.WaitUntilDone())
}

func TestRouteMetricsServesPrometheusFormat(t *testing.T) {
	g := newTestGraph(t)
	s := New(Config{Enabled: true, Address: "127.0.0.1:0"}, g)
	require.NotNil(t, s)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "calcd_uptime")
}
