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

// Package triggerclock decides when an accumulating bundle must be
// flushed, and tracks the timestamp of the most recent flush.
package triggerclock

import "time"

// Reason names which trigger(s) fired. Multiple reasons may apply at once.
type Reason struct {
	NumPacketLimit bool
	SizeLimit      bool
	Timeout        bool
}

// Any reports whether at least one reason fired.
func (r Reason) Any() bool {
	return r.NumPacketLimit || r.SizeLimit || r.Timeout
}

// Config holds the immutable trigger thresholds.
type Config struct {
	LimitPackets  int
	SizeThreshold int
	Timeout       time.Duration
	Period        time.Duration
}

// Clock evaluates Config against live buffer state and tracks the
// timestamp of the most recent flush (real or empty-tick).
type Clock struct {
	cfg        Config
	lastSentAt time.Time
}

// New returns a Clock with lastSentAt initialized to now.
func New(cfg Config, now time.Time) *Clock {
	return &Clock{cfg: cfg, lastSentAt: now}
}

// TimeUntilPeriod returns the remaining time until the hard-period
// trigger fires, never negative.
func (c *Clock) TimeUntilPeriod(now time.Time) time.Duration {
	remaining := c.cfg.Period - now.Sub(c.lastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldFlush evaluates the three data-driven triggers (the hard period
// is enforced by the event loop's wait timeout, not by this predicate)
// against the current buffer count, size and elapsed idle time.
//
// Reasons are evaluated in a fixed order -  numpacket_limit, size_limit,
// timeout - but all that apply are reported, matching the tie-break rule
// in the design.
func (c *Clock) ShouldFlush(now time.Time, count, size int) Reason {
	var r Reason
	if count == c.cfg.LimitPackets {
		r.NumPacketLimit = true
	}
	if size > c.cfg.SizeThreshold {
		r.SizeLimit = true
	}
	if now.Sub(c.lastSentAt) > c.cfg.Timeout {
		r.Timeout = true
	}
	return r
}

// MarkSent updates lastSentAt. Called unconditionally after every
// wait-timeout (empty or not) and after every triggered flush - the
// aliasing between "nothing to send" and "timeout elapsed" is resolved
// by only attaching the timeout Reason when data was actually sent.
func (c *Clock) MarkSent(now time.Time) {
	c.lastSentAt = now
}

// LastSentAt returns the timestamp of the most recent flush.
func (c *Clock) LastSentAt() time.Time {
	return c.lastSentAt
}
