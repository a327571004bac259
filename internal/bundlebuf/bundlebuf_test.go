// Copyright 2025 The muxtun Authors
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

package bundlebuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAppend_SingleSmallPacket(t *testing.T) {
	b := New(1472, 100)
	payload := bytes.Repeat([]byte{0xAB}, 40)

	res, err := b.TryAppend(payload)
	require.NoError(t, err)
	assert.Equal(t, Appended, res.Outcome)
	assert.Equal(t, 1, b.Count())
	assert.Equal(t, 41, b.Size())

	bundle := b.Drain()
	require.Len(t, bundle, 41)
	assert.Equal(t, byte(0x28), bundle[0])
}

func TestTryAppend_TwoPacketsBelowThreshold(t *testing.T) {
	b := New(1472, 3)

	_, err := b.TryAppend(bytes.Repeat([]byte{0x01}, 40))
	require.NoError(t, err)
	_, err = b.TryAppend(bytes.Repeat([]byte{0x02}, 50))
	require.NoError(t, err)

	assert.Equal(t, 2, b.Count())
	assert.Equal(t, 92, b.Size())

	bundle := b.Drain()
	assert.Equal(t, byte(0x28), bundle[0])
	assert.Equal(t, byte(0x32), bundle[41])
}

func TestTryAppend_LongFormBoundary(t *testing.T) {
	b := New(1500, 100)
	res, err := b.TryAppend(bytes.Repeat([]byte{0x01}, 100))
	require.NoError(t, err)
	assert.Equal(t, Appended, res.Outcome)

	bundle := b.Drain()
	require.Len(t, bundle, 102)
	assert.Equal(t, []byte{0x40, 0x64}, bundle[:2])
}

func TestTryAppend_MTUPreemption(t *testing.T) {
	b := New(1500, 100)

	// Fill to exactly 1400 bytes buffered.
	_, err := b.TryAppend(bytes.Repeat([]byte{0x01}, 1398))
	require.NoError(t, err)
	require.Equal(t, 1400, b.Size())

	res, err := b.TryAppend(bytes.Repeat([]byte{0x02}, 120))
	require.NoError(t, err)
	require.Equal(t, Flushed, res.Outcome)
	assert.Len(t, res.Bundle, 1400)
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, 0, b.Size())

	require.NoError(t, b.AppendNow(bytes.Repeat([]byte{0x02}, 120)))
	assert.Equal(t, 122, b.Size())
	assert.Equal(t, 1, b.Count())
}

func TestTryAppend_SizeMonotonicity(t *testing.T) {
	b := New(1500, 100)
	for _, n := range []int{10, 20, 63, 64, 200} {
		before := b.Size()
		res, err := b.TryAppend(bytes.Repeat([]byte{0x5}, n))
		require.NoError(t, err)
		require.Equal(t, Appended, res.Outcome)
		assert.Equal(t, before+sepLen(n)+n, b.Size())
	}
}

func sepLen(n int) int {
	if n < 64 {
		return 1
	}
	return 2
}

func TestDrain_Empty(t *testing.T) {
	b := New(1500, 100)
	assert.Nil(t, b.Drain())
}
