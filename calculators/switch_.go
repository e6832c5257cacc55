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
	"github.com/calcd/calcd/packet"
)

func init() {
	calculator.Register("Switch", newSwitch)
}

// switchCalc demultiplexes its "in" input to "zero" or "one" by the
// synchronized "select" input: 0 routes to "zero", anything else to "one".
// The input option renames the "in" port, defaulting to "in", to read
// whatever name the stream being demultiplexed already has.
type switchCalc struct {
	in string
}

func newSwitch(opts common.Options) (calculator.Calculator, error) {
	in, _ := opts.GetString("input")
	return switchCalc{in: in}, nil
}

func (s switchCalc) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{orName(s.in, "in"), "select"}, Outputs: []string{"zero", "one"}}
}

func (switchCalc) Open(calculator.Context) error { return nil }

func (s switchCalc) Process(ctx calculator.Context) error {
	in, ok := ctx.Input(orName(s.in, "in"))
	if !ok {
		return nil
	}
	sel, ok := ctx.Input("select")
	if !ok {
		return nil
	}
	selVal, err := packet.Get[int](sel)
	if err != nil {
		return err
	}
	if selVal == 0 {
		return ctx.Output("zero", in)
	}
	return ctx.Output("one", in)
}

func (switchCalc) Close(calculator.Context, error) error { return nil }
