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
	"github.com/spf13/cast"

	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/packet"
)

func init() {
	calculator.Register("Adder", func(common.Options) (calculator.Calculator, error) {
		return adder{}, nil
	})
	calculator.Register("UnitDelay", newUnitDelay)
}

// adder sums its two synchronized inputs, "addend" and "delayed", onto
// "sum". Feeding "sum" back through a UnitDelay into "delayed" turns it
// into a running total: UnitDelay is what closes the back edge with an
// initial value, so sum(0) sees delayed(0) rather than nothing.
type adder struct{}

func (adder) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{"addend", "delayed"}, Outputs: []string{"sum"}}
}

func (adder) Open(calculator.Context) error { return nil }

func (adder) Process(ctx calculator.Context) error {
	a, ok := ctx.Input("addend")
	if !ok {
		return nil
	}
	d, ok := ctx.Input("delayed")
	if !ok {
		return nil
	}
	av, err := packet.Get[int](a)
	if err != nil {
		return err
	}
	dv, err := packet.Get[int](d)
	if err != nil {
		return err
	}
	return ctx.Output("sum", packet.Of(av+dv))
}

func (adder) Close(calculator.Context, error) error { return nil }

// unitDelay emits the value it saw on its input at timestamp t back out on
// its output at timestamp t+1, and emits the configured "initial" option
// value at timestamp 0 during Open, so a consumer synchronized against both
// the original value and this node's output at the same timestamp sees the
// delayed one one tick behind. The input/output options rename its ports,
// defaulting to "in"/"out", to close a back edge into whatever the
// accumulator's own second input is named.
type unitDelay struct {
	initial int
	in      string
	out     string
}

func newUnitDelay(opts common.Options) (calculator.Calculator, error) {
	initial, err := cast.ToIntE(opts["initial"])
	if err != nil {
		initial = 0
	}
	in, _ := opts.GetString("input")
	out, _ := opts.GetString("output")
	return &unitDelay{initial: initial, in: in, out: out}, nil
}

func (u *unitDelay) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{orName(u.in, "in")}, Outputs: []string{orName(u.out, "out")}}
}

func (u *unitDelay) Open(ctx calculator.Context) error {
	return ctx.Output(orName(u.out, "out"), packet.Of(u.initial).At(0))
}

func (u *unitDelay) Process(ctx calculator.Context) error {
	p, ok := ctx.Input(orName(u.in, "in"))
	if !ok {
		return nil
	}
	v, err := packet.Get[int](p)
	if err != nil {
		return err
	}
	return ctx.Output(orName(u.out, "out"), packet.Of(v).At(p.Timestamp()+1))
}

func (*unitDelay) Close(calculator.Context, error) error { return nil }
