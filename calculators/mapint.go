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
	"github.com/calcd/calcd/packet"
)

func init() {
	calculator.Register("MapInt", newMapInt)
}

// mapInt applies the integer operation named by the "op" option ("double"
// or "square") to every packet on its input, emitting the result on its
// output at the same timestamp. The input/output options rename its ports,
// defaulting to "in"/"out".
type mapInt struct {
	op  string
	in  string
	out string
}

func newMapInt(opts common.Options) (calculator.Calculator, error) {
	op, err := opts.GetString("op")
	if err != nil || (op != "double" && op != "square") {
		return nil, gerrors.InvalidArgumentf("MapInt: options.op must be %q or %q", "double", "square")
	}
	in, _ := opts.GetString("input")
	out, _ := opts.GetString("output")
	return &mapInt{op: op, in: in, out: out}, nil
}

func (m *mapInt) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{orName(m.in, "in")}, Outputs: []string{orName(m.out, "out")}}
}

func (*mapInt) Open(calculator.Context) error { return nil }

func (m *mapInt) Process(ctx calculator.Context) error {
	p, ok := ctx.Input(orName(m.in, "in"))
	if !ok {
		return nil
	}
	v, err := packet.Get[int](p)
	if err != nil {
		return err
	}
	var out int
	switch m.op {
	case "double":
		out = v * 2
	case "square":
		out = v * v
	}
	return ctx.Output(orName(m.out, "out"), packet.Of(out).At(p.Timestamp()))
}

func (*mapInt) Close(calculator.Context, error) error { return nil }
