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

package graphconfig

import (
	"github.com/calcd/calcd/confengine"
)

// Load decodes and validates a graph config file at path, the same way
// the teacher's processor.NewManager decodes its "processor" list: read
// the whole file with confengine, unpack into the raw shape, then
// validate and canonicalize.
func Load(path string) (*ValidatedGraph, error) {
	conf, err := confengine.LoadConfigPath(path)
	if err != nil {
		return nil, err
	}
	return LoadFromConfig(conf)
}

// LoadFromConfig decodes and validates a graph config already wrapped in
// a *confengine.Config (e.g. assembled in a test or embedded elsewhere).
func LoadFromConfig(conf *confengine.Config) (*ValidatedGraph, error) {
	var raw GraphConfig
	if err := conf.Unpack(&raw); err != nil {
		return nil, err
	}
	return Validate(&raw)
}
