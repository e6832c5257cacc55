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

package gerrors

import (
	"github.com/hashicorp/go-multierror"
)

// Combiner accumulates recorded errors and renders them as the single
// stable message WaitUntilDone returns, keeping the first error's Code as
// the combined status's code.
type Combiner struct {
	merr *multierror.Error
}

func (c *Combiner) Add(err error) {
	if err == nil {
		return
	}
	c.merr = multierror.Append(c.merr, err)
}

// Len returns the number of errors recorded so far.
func (c *Combiner) Len() int {
	if c.merr == nil {
		return 0
	}
	return len(c.merr.Errors)
}

// Combined returns nil if no error was recorded, the sole error if exactly
// one was recorded, or a *Status carrying the first error's code and a
// multierror-formatted message listing every recorded error otherwise.
func (c *Combiner) Combined() error {
	if c.merr == nil || len(c.merr.Errors) == 0 {
		return nil
	}
	if len(c.merr.Errors) == 1 {
		return c.merr.Errors[0]
	}

	first := c.merr.Errors[0]
	code := Internal
	var st *Status
	if ok := asStatus(first, &st); ok {
		code = st.code
	}
	return &Status{code: code, message: c.merr.Error()}
}

func asStatus(err error, out **Status) bool {
	st, ok := err.(*Status)
	if ok {
		*out = st
		return true
	}
	return false
}
