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

package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/common"
)

type noopCalculator struct{}

func (noopCalculator) GetContract() Contract { return Contract{} }
func (noopCalculator) Open(Context) error     { return nil }
func (noopCalculator) Process(Context) error  { return nil }
func (noopCalculator) Close(Context, error) error { return nil }

func TestRegisterAndGet(t *testing.T) {
	Register("test.noop", func(common.Options) (Calculator, error) {
		return noopCalculator{}, nil
	})

	f, err := Get("test.noop")
	require.NoError(t, err)

	calc, err := f(common.NewOptions())
	require.NoError(t, err)
	assert.NotNil(t, calc)
}

func TestGetUnknownFails(t *testing.T) {
	_, err := Get("test.does-not-exist")
	assert.Error(t, err)
}
