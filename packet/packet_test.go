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

package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcd/calcd/timestamp"
)

func TestAtDoesNotMutate(t *testing.T) {
	p := Of("hello").At(timestamp.Timestamp(1))
	q := p.At(timestamp.Timestamp(2))

	assert.Equal(t, timestamp.Timestamp(1), p.Timestamp())
	assert.Equal(t, timestamp.Timestamp(2), q.Timestamp())

	v, err := Get[string](p)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestGetTypeMismatch(t *testing.T) {
	p := Of(42)
	_, err := Get[string](p)
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	p := Empty().At(timestamp.Timestamp(3))
	assert.True(t, p.IsEmpty())
	assert.Equal(t, timestamp.Timestamp(3), p.Timestamp())
}
