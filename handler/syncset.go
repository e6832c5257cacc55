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

package handler

import "github.com/calcd/calcd/instream"

// SyncSet partitions its inputs into named subsets, each synchronized
// independently with Default-style timestamp alignment; subsets
// themselves are serviced like Immediate (whichever subset becomes ready
// first is delivered next). Inputs not assigned to any declared subset
// fall into an implicit subset of their own.
type SyncSet struct {
	subsetOf map[string]string
	subsets  map[string]*Default
	order    []string
}

// NewSyncSet builds a SyncSet from a subset-name -> input-names map. Call
// Add for every input afterward; inputs whose name is not listed in any
// subset are synchronized alone.
func NewSyncSet(subsetNames map[string][]string) *SyncSet {
	s := &SyncSet{
		subsetOf: make(map[string]string),
		subsets:  make(map[string]*Default),
	}
	for subset, names := range subsetNames {
		s.subsets[subset] = NewDefault()
		s.order = append(s.order, subset)
		for _, n := range names {
			s.subsetOf[n] = subset
		}
	}
	return s
}

func (s *SyncSet) Add(name string, in *instream.Manager) {
	subset, ok := s.subsetOf[name]
	if !ok {
		subset = "_solo_" + name
		s.subsetOf[name] = subset
	}
	d, ok := s.subsets[subset]
	if !ok {
		d = NewDefault()
		s.subsets[subset] = d
		s.order = append(s.order, subset)
	}
	d.Add(name, in)
}

func (s *SyncSet) Names() []string {
	var out []string
	for _, subset := range s.order {
		out = append(out, s.subsets[subset].Names()...)
	}
	return out
}

func (s *SyncSet) NextInputSet() (InputSet, bool) {
	for _, subset := range s.order {
		if set, ok := s.subsets[subset].NextInputSet(); ok {
			return set, true
		}
	}
	return InputSet{}, false
}

func (s *SyncSet) Done() bool {
	for _, subset := range s.order {
		if !s.subsets[subset].Done() {
			return false
		}
	}
	return len(s.order) > 0
}
