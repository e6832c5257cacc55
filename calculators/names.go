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

// orName returns name if set, otherwise def. A graph wires two calculators
// together by giving their input/output streams the same literal name, so
// a general-purpose calculator with a fixed port convention ("in", "out")
// needs its own ports renamable to whatever name the stream on the other
// end of an edge already has. Every renamable calculator here takes the
// override through its options and falls back to def, so a zero-value
// struct literal (as used directly in this package's own tests) keeps the
// original fixed name.
func orName(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
