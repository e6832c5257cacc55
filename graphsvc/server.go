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

// Package graphsvc exposes a running graph's admin and metrics surface
// over HTTP: Prometheus scrape, log-level override, a graph introspection
// dump and an out-of-band cancel route.
package graphsvc

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calcd/calcd/graph"
	"github.com/calcd/calcd/internal/json"
	"github.com/calcd/calcd/logger"
)

// Config controls whether and how the admin server listens.
type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

// Server is the admin/metrics HTTP surface for one Graph.
//
// New returns a nil pointer when config.Enabled is false; callers must
// check before calling ListenAndServe.
type Server struct {
	config Config
	router *mux.Router
	server *http.Server
	g      *graph.Graph
}

// New builds a Server bound to g. It returns nil when config.Enabled is
// false.
func New(config Config, g *graph.Graph) *Server {
	if !config.Enabled {
		return nil
	}

	router := mux.NewRouter()
	s := &Server{
		config: config,
		router: router,
		g:      g,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
	s.setupRoutes()
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s
}

func (s *Server) setupRoutes() {
	s.RegisterGetRoute("/metrics", s.routeMetrics)
	s.RegisterGetRoute("/-/graph", s.routeGraph)
	s.RegisterPostRoute("/-/logger", s.routeLogger)
	s.RegisterPostRoute("/-/cancel", s.routeCancel)
}

// ListenAndServe blocks, serving until the listener fails or Close is
// called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("graphsvc listening on %s", s.config.Address)
	return s.server.Serve(l)
}

// Close shuts the server down immediately, dropping in-flight requests.
func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterPostRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPost).Path(path).HandlerFunc(f)
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}

func (s *Server) routeMetrics(w http.ResponseWriter, r *http.Request) {
	s.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

// routeCancel requests the graph's current run stop; it does not wait for
// termination.
func (s *Server) routeCancel(w http.ResponseWriter, r *http.Request) {
	s.g.Cancel()
	w.Write([]byte(`{"status": "success"}`))
}

// routeGraph dumps every node's current state as JSON, for debugging a
// stuck or unexpectedly-idle run.
func (s *Server) routeGraph(w http.ResponseWriter, r *http.Request) {
	b, err := json.MarshalIndent(s.g.Inspect(), "", "  ")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
