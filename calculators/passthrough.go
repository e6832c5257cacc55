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

// Package calculators is a small catalog of general-purpose calculators:
// enough to wire together fan-out/fan-in, feedback and throttling
// topologies without every graph binary having to reinvent them.
package calculators

import (
	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/common"
)

func init() {
	calculator.Register("PassThrough", newPassThrough)
}

// passThrough re-emits every packet delivered on its input unchanged on its
// output, preserving its timestamp. The input/output options rename its
// ports to fit the stream names either side of it already use, defaulting
// to "in"/"out".
type passThrough struct {
	in  string
	out string
}

func newPassThrough(opts common.Options) (calculator.Calculator, error) {
	in, _ := opts.GetString("input")
	out, _ := opts.GetString("output")
	return passThrough{in: in, out: out}, nil
}

func (p passThrough) GetContract() calculator.Contract {
	return calculator.Contract{Inputs: []string{orName(p.in, "in")}, Outputs: []string{orName(p.out, "out")}}
}

func (passThrough) Open(calculator.Context) error { return nil }

func (p passThrough) Process(ctx calculator.Context) error {
	v, ok := ctx.Input(orName(p.in, "in"))
	if !ok {
		return nil
	}
	return ctx.Output(orName(p.out, "out"), v)
}

func (passThrough) Close(calculator.Context, error) error { return nil }
