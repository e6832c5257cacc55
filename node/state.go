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

// Package node implements the per-node state machine, calculator
// invocation, and the CalculatorContext a calculator uses to read its
// inputs and side packets and emit outputs.
package node

// State is a node's position in the Uninitialized -> Prepared -> Opened
// -> Active <-> Idle -> Closed lifecycle.
type State int

const (
	Uninitialized State = iota
	Prepared
	Opened
	Active
	Idle
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Prepared:
		return "Prepared"
	case Opened:
		return "Opened"
	case Active:
		return "Active"
	case Idle:
		return "Idle"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}
