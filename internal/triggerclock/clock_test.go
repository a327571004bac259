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

package triggerclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestShouldFlush_NumPacketLimit(t *testing.T) {
	c := New(Config{LimitPackets: 3, SizeThreshold: 1472, Timeout: time.Hour, Period: time.Hour}, base)
	r := c.ShouldFlush(base, 3, 10)
	assert.True(t, r.NumPacketLimit)
	assert.True(t, r.Any())
}

func TestShouldFlush_SizeLimit(t *testing.T) {
	c := New(Config{LimitPackets: 100, SizeThreshold: 100, Timeout: time.Hour, Period: time.Hour}, base)
	r := c.ShouldFlush(base, 1, 101)
	assert.True(t, r.SizeLimit)
}

func TestShouldFlush_Timeout(t *testing.T) {
	c := New(Config{LimitPackets: 100, SizeThreshold: 1472, Timeout: 10 * time.Microsecond, Period: time.Hour}, base)
	r := c.ShouldFlush(base.Add(20*time.Microsecond), 1, 10)
	assert.True(t, r.Timeout)
}

func TestShouldFlush_Monotone(t *testing.T) {
	cfg := Config{LimitPackets: 10, SizeThreshold: 1000, Timeout: time.Second, Period: time.Hour}
	c := New(cfg, base)

	r1 := c.ShouldFlush(base, 5, 500)
	assert.False(t, r1.Any())

	// increasing count/size/elapsed can only make ShouldFlush more true,
	// never flip a fired reason back off.
	r2 := c.ShouldFlush(base, 10, 500)
	assert.True(t, r2.NumPacketLimit)

	r3 := c.ShouldFlush(base, 10, 1500)
	assert.True(t, r3.NumPacketLimit)
	assert.True(t, r3.SizeLimit)
}

func TestTimeUntilPeriod(t *testing.T) {
	c := New(Config{Period: 100 * time.Microsecond}, base)
	assert.Equal(t, 100*time.Microsecond, c.TimeUntilPeriod(base))
	assert.Equal(t, 40*time.Microsecond, c.TimeUntilPeriod(base.Add(60*time.Microsecond)))
	assert.Equal(t, time.Duration(0), c.TimeUntilPeriod(base.Add(200*time.Microsecond)))
}

func TestMarkSent(t *testing.T) {
	c := New(Config{Period: time.Hour}, base)
	later := base.Add(time.Minute)
	c.MarkSent(later)
	assert.Equal(t, later, c.LastSentAt())
}
