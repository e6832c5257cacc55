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
	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/gerrors"
)

func init() {
	calculator.Register("Decimator", newDecimator)
}

// decimator forwards every keepEvery-th packet on its input to its output
// (the 0th, keepEvery-th, 2*keepEvery-th, ...) and drops the rest. The
// input/output options rename its ports, defaulting to "in"/"out".
type decimator struct {
	keepEvery int
	in        string
	out       string
	seen      int
}

func newDecimator(opts common.Options) (calculator.Calculator, error) {
	keepEvery, err := opts.GetInt("keep_every")
	if err != nil || keepEvery <= 0 {
		return nil, gerrors.InvalidArgumentf("Decimator: options.keep_every must be a positive integer")
	}
	in, _ := opts.GetString("input")
	out, _ := opts.GetString("output")
	return &decimator{keepEvery: keepEvery, in: in, out: out}, nil
}

func (d *decimator) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{orName(d.in, "in")}, Outputs: []string{orName(d.out, "out")}}
}

func (*decimator) Open(calculator.Context) error { return nil }

func (d *decimator) Process(ctx calculator.Context) error {
	p, ok := ctx.Input(orName(d.in, "in"))
	if !ok {
		return nil
	}
	keep := d.seen%d.keepEvery == 0
	d.seen++
	if !keep {
		return nil
	}
	return ctx.Output(orName(d.out, "out"), p)
}

func (*decimator) Close(calculator.Context, error) error { return nil }
