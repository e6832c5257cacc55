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

package sidepacket

import (
	"github.com/pkg/errors"

	"github.com/calcd/calcd/common"
	"github.com/calcd/calcd/packet"
)

// Generator produces one or more named side packets from a set of input
// side packets, running once per phase it is scheduled in.
type Generator interface {
	// Name identifies this generator instance within its graph, for error
	// messages and AlreadyExists reporting.
	Name() string

	// InputSideNames lists the side-packet names this generator must read
	// before it can run.
	InputSideNames() []string

	// OutputSideNames lists the side-packet names this generator produces;
	// Generate must return exactly this set.
	OutputSideNames() []string

	// Generate computes this generator's outputs given its resolved
	// inputs. inputs contains at least every name InputSideNames lists.
	Generate(inputs *Manager) (map[string]packet.Packet, error)
}

// CreateFunc builds a Generator from its declared options, mirroring the
// calculator registry's construction pattern.
type CreateFunc func(opts common.Options) (Generator, error)

var generatorFactory = map[string]CreateFunc{}

// Register adds a generator constructor under name, called from the
// generator package's init function.
func Register(name string, f CreateFunc) {
	generatorFactory[name] = f
}

// Get looks up a registered generator constructor by name.
func Get(name string) (CreateFunc, error) {
	f, ok := generatorFactory[name]
	if !ok {
		return nil, errors.Errorf("generator factory (%s) not found", name)
	}
	return f, nil
}
