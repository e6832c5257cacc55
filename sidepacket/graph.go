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
	"sync"

	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/internal/rescue"
	"github.com/calcd/calcd/packet"
)

// genResult carries one generator invocation's outcome back to its
// scheduling round.
type genResult struct {
	gen     Generator
	outputs map[string]packet.Packet
	err     error
}

// Graph is a side-packet-only DAG of Generators, run in two phases: an
// initialize phase seeded with the base side packets passed to the
// graph's Initialize, and a per-run phase seeded additionally with
// whatever extra side packets a particular run supplies.
//
// A generator is runnable once every name in InputSideNames is resolved.
// Each phase repeatedly schedules every runnable-but-unscheduled
// generator concurrently until no more become runnable; generators that
// never become runnable during the initialize phase are remembered as
// non-base and retried during the per-run phase.
type Graph struct {
	generators []Generator

	mu      sync.Mutex
	nonBase []Generator
}

func NewGraph(generators []Generator) *Graph {
	return &Graph{generators: generators}
}

// RunInitializePhase schedules every generator whose inputs resolve from
// base alone, as many rounds as needed. Generators left unscheduled are
// remembered for RunPerRunPhase. Returns the Manager of everything
// produced this phase (merged with base).
func (g *Graph) RunInitializePhase(base *Manager) (*Manager, error) {
	resolved := NewManager()
	resolved.Merge(base)

	scheduled := make(map[string]bool, len(g.generators))
	remaining := append([]Generator(nil), g.generators...)

	for {
		runnable, rest := partitionRunnable(remaining, resolved, scheduled)
		if len(runnable) == 0 {
			break
		}
		if err := runRound(runnable, resolved, scheduled); err != nil {
			return nil, err
		}
		remaining = rest
	}

	g.mu.Lock()
	g.nonBase = remaining
	g.mu.Unlock()

	return resolved, nil
}

// RunPerRunPhase seeds a fresh Manager with base's resolved output plus
// extra, then schedules only the generators left over from the
// initialize phase. Every one of them must become runnable, or the run
// fails: mirrors the source's "waits for already-scheduled tasks to
// finish" contract by always draining every in-flight round before
// returning, success or failure.
func (g *Graph) RunPerRunPhase(base, extra *Manager) (*Manager, error) {
	g.mu.Lock()
	nonBase := append([]Generator(nil), g.nonBase...)
	g.mu.Unlock()

	resolved := NewManager()
	resolved.Merge(base)
	resolved.Merge(extra)

	scheduled := make(map[string]bool, len(nonBase))
	remaining := nonBase

	for {
		runnable, rest := partitionRunnable(remaining, resolved, scheduled)
		if len(runnable) == 0 {
			break
		}
		if err := runRound(runnable, resolved, scheduled); err != nil {
			return nil, err
		}
		remaining = rest
	}

	if len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, gen := range remaining {
			names[i] = gen.Name()
		}
		return nil, gerrors.FailedPreconditionf(
			"packet generator graph: %d generator(s) could not be resolved: %v", len(remaining), names)
	}

	return resolved, nil
}

func partitionRunnable(gens []Generator, resolved *Manager, scheduled map[string]bool) (runnable, rest []Generator) {
	for _, gen := range gens {
		if scheduled[gen.Name()] {
			continue
		}
		if isRunnable(gen, resolved) {
			runnable = append(runnable, gen)
		} else {
			rest = append(rest, gen)
		}
	}
	return runnable, rest
}

func isRunnable(gen Generator, resolved *Manager) bool {
	for _, name := range gen.InputSideNames() {
		if _, ok := resolved.Get(name); !ok {
			return false
		}
	}
	return true
}

// runRound invokes every generator in runnable concurrently against a
// consistent snapshot of resolved, then merges their outputs back in,
// rejecting duplicate production of a name already resolved. All
// scheduled tasks are awaited even if one fails, so a failure never
// leaves a generator still writing into resolved after the round
// returns.
func runRound(runnable []Generator, resolved *Manager, scheduled map[string]bool) error {
	snapshot := resolved.Snapshot()

	results := make([]genResult, len(runnable))
	var wg sync.WaitGroup
	for i, gen := range runnable {
		scheduled[gen.Name()] = true
		wg.Add(1)
		go func(i int, gen Generator) {
			defer wg.Done()
			defer rescue.HandleCrash()
			results[i] = invoke(gen, snapshot)
		}(i, gen)
	}
	wg.Wait()

	var combined gerrors.Combiner
	for _, r := range results {
		if r.err != nil {
			combined.Add(r.err)
			continue
		}
		for name, p := range r.outputs {
			if _, exists := resolved.Get(name); exists {
				combined.Add(gerrors.AlreadyExistsf("side packet %q produced more than once (generator %s)", name, r.gen.Name()))
				continue
			}
			resolved.Set(name, p)
		}
	}
	return combined.Combined()
}

// invoke runs one generator under panic containment and checks its output
// against its declared OutputSideNames.
func invoke(gen Generator, inputs *Manager) (r genResult) {
	r.gen = gen
	defer rescue.Guard(&r.err)

	out, err := gen.Generate(inputs)
	if err != nil {
		r.err = err
		return
	}

	declared := make(map[string]bool, len(gen.OutputSideNames()))
	for _, name := range gen.OutputSideNames() {
		declared[name] = true
	}
	for name := range out {
		if !declared[name] {
			r.err = gerrors.InvalidArgumentf("generator %s produced undeclared side packet %q", gen.Name(), name)
			return
		}
	}
	r.outputs = out
	return
}
