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

// Package calculator defines the Calculator contract every graph node
// binds to, and the process-wide registry mapping a configured
// calculator name to a constructor. The registry mechanism is part of
// the core; the catalog of calculators registered into it is not -- that
// is supplied by whoever links a particular graph binary.
package calculator

import (
	"github.com/pkg/errors"

	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/packet"
)

// Contract describes a calculator's stream and side-packet shape before
// any instance is constructed, so the graph builder can validate wiring
// (stream presence, cardinalities) without running the calculator.
type Contract struct {
	Inputs      []string
	Outputs     []string
	InputSides  []string
	OutputSides []string
}

// Context is the per-invocation handle a Calculator uses to read its
// current input set, emit outputs and read side packets. Its concrete
// implementation lives in package node.
type Context interface {
	// Input returns the packet delivered on the named input for this
	// invocation, or !ok if that input had no data this round.
	Input(name string) (packet.Packet, bool)

	// Output emits p on the named output, stamped with the invocation's
	// timestamp unless p already carries one.
	Output(name string, p packet.Packet) error

	// SidePacket returns the named side packet, or !ok if unresolved.
	SidePacket(name string) (packet.Packet, bool)

	// SetOffset declares a constant timestamp offset between this node's
	// inputs and outputs. Valid only during Open; calling it during
	// Process returns FailedPrecondition.
	SetOffset(offset int64) error

	// SetSourceProcessOrder overrides a source node's SchedulerQueue
	// tie-breaker (ordinarily timestamp.Unstarted's value). Valid only
	// during Open, and only for source nodes.
	SetSourceProcessOrder(order int64) error
}

// Calculator is the user-provided computation bound to a graph node. It
// replaces the deep CalculatorBase/StatusHandler inheritance of the
// original design with a small interface implementing the four lifecycle
// methods.
type Calculator interface {
	// GetContract returns this calculator's declared stream/side-packet
	// shape, consulted at graph validation time.
	GetContract() Contract

	// Open is called once, after Prepare and before the first Process.
	// Returning a non-nil error closes the node without ever calling
	// Process or Close.
	Open(ctx Context) error

	// Process is invoked once per ready input set (or, for a source
	// node, repeatedly with no input) until it returns the gerrors Stop
	// sentinel or a non-nil error.
	Process(ctx Context) error

	// Close is invoked exactly once, unless Open errored, with the
	// node's accumulated terminal status (nil on graceful completion).
	Close(ctx Context, cause error) error
}

// CreateFunc builds a Calculator from its declared per-node options.
type CreateFunc func(opts common.Options) (Calculator, error)

var registry = map[string]CreateFunc{}

// Register adds a calculator constructor under name. Call from an init
// function in the package that defines the calculator.
func Register(name string, f CreateFunc) {
	registry[name] = f
}

// Get looks up a registered calculator constructor by name.
func Get(name string) (CreateFunc, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("calculator factory (%s) not found", name)
	}
	return f, nil
}
