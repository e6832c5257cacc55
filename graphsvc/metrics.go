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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/calcd/calcd/common"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	nodeState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "node_state",
			Help:      "1 for a node's current state, 0 for every other state it could be in",
		},
		[]string{"node", "calculator", "state"},
	)
)

func (s *Server) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	info := common.GetBuildInfo()
	buildInfo.WithLabelValues(info.Version, info.GitHash, info.Time).Inc()

	for _, st := range s.g.Inspect() {
		for _, candidate := range []string{"Prepared", "Opened", "Active", "Idle", "Closed"} {
			v := 0.0
			if candidate == st.State {
				v = 1
			}
			nodeState.WithLabelValues(st.Name, st.Calculator, candidate).Set(v)
		}
	}
}
