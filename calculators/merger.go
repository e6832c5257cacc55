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
	"fmt"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/timestamp"
)

func init() {
	calculator.Register("Merger", newMerger)
}

// merger has "count" independently-driven inputs named "in0".."in{n-1}"
// (pair it with the Immediate input stream handler, since its inputs are
// never expected to align on timestamp) and forwards each delivered
// packet onto "out" unchanged, except that a packet whose timestamp does
// not strictly exceed the last one forwarded is dropped rather than
// violating the output stream's ordering: a node feeding more than one of
// a merger's inputs with overlapping timestamps relies on this to collapse
// duplicates instead of deadlocking the merge.
type merger struct {
	names  []string
	lastTS timestamp.Timestamp
	have   bool
}

func newMerger(opts common.Options) (calculator.Calculator, error) {
	count, err := opts.GetInt("count")
	if err != nil || count <= 0 {
		return nil, gerrors.InvalidArgumentf("Merger: options.count must be a positive integer")
	}
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("in%d", i)
	}
	return &merger{names: names}, nil
}

func (m *merger) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: m.names, Outputs: []string{"out"}}
}

func (*merger) Open(calculator.Context) error { return nil }

func (m *merger) Process(ctx calculator.Context) error {
	for _, name := range m.names {
		p, ok := ctx.Input(name)
		if !ok {
			continue
		}
		if m.have && p.Timestamp() <= m.lastTS {
			return nil
		}
		m.lastTS = p.Timestamp()
		m.have = true
		return ctx.Output("out", p)
	}
	return nil
}

func (*merger) Close(calculator.Context, error) error { return nil }
