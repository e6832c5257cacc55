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
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/timestamp"
)

func init() {
	calculator.Register("Sequence", newSequence)
	calculator.Register("PairSequence", newPairSequence)
}

// sequence is a source that emits one packet per "values" option entry on
// its output, stamped at consecutive timestamps starting at 0, then stops.
// The output option renames the port, defaulting to "out", to feed
// whatever name the consumer downstream already expects.
type sequence struct {
	values []any
	out    string
	next   int
}

func newSequence(opts common.Options) (calculator.Calculator, error) {
	values, err := cast.ToSliceE(opts["values"])
	if err != nil {
		return nil, gerrors.InvalidArgumentf("Sequence: options.values: %v", err)
	}
	out, _ := opts.GetString("output")
	return &sequence{values: values, out: out}, nil
}

func (s *sequence) GetContract() calculator.Contract {
	return calculator.Contract{Outputs: []string{orName(s.out, "out")}}
}

func (*sequence) Open(calculator.Context) error { return nil }

func (s *sequence) Process(ctx calculator.Context) error {
	if s.next >= len(s.values) {
		return gerrors.StopStatus()
	}
	t := timestamp.Timestamp(s.next)
	v := s.values[s.next]
	s.next++
	return ctx.Output(orName(s.out, "out"), packet.Of(v).At(t))
}

func (*sequence) Close(calculator.Context, error) error { return nil }

// pairSequence is a source that emits one packet per "values" option entry
// on "value" and the matching entry of "selects" on "select", both stamped
// at the same consecutive timestamp, then stops. The two option slices
// must have equal length.
type pairSequence struct {
	values  []any
	selects []any
	next    int
}

func newPairSequence(opts common.Options) (calculator.Calculator, error) {
	values, err := cast.ToSliceE(opts["values"])
	if err != nil {
		return nil, gerrors.InvalidArgumentf("PairSequence: options.values: %v", err)
	}
	selects, err := cast.ToSliceE(opts["selects"])
	if err != nil {
		return nil, gerrors.InvalidArgumentf("PairSequence: options.selects: %v", err)
	}
	if len(values) != len(selects) {
		return nil, gerrors.InvalidArgumentf("PairSequence: values and selects must have equal length")
	}
	return &pairSequence{values: values, selects: selects}, nil
}

func (*pairSequence) GetContract() calculator.Contract {
	return calculator.Contract{Outputs: []string{"value", "select"}}
}

func (*pairSequence) Open(calculator.Context) error { return nil }

func (s *pairSequence) Process(ctx calculator.Context) error {
	if s.next >= len(s.values) {
		return gerrors.StopStatus()
	}
	t := timestamp.Timestamp(s.next)
	v, sel := s.values[s.next], s.selects[s.next]
	s.next++
	if err := ctx.Output("value", packet.Of(v).At(t)); err != nil {
		return err
	}
	return ctx.Output("select", packet.Of(sel).At(t))
}

func (*pairSequence) Close(calculator.Context, error) error { return nil }
