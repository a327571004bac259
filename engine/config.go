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

// Package engine owns the tunnel optimizer's data-plane core: the
// event loop, the bundle buffer, the trigger clock, and the codecs
// wired together at startup per RunConfig.
package engine

import (
	"time"

	"github.com/netmux/muxtun/common"
	"github.com/netmux/muxtun/internal/vdevice"
)

// RunConfig is the full set of tunnel parameters, immutable for the
// process lifetime once the Engine is constructed (the core tunnel
// parameters come only from the CLI; see confengine for the ambient
// admin/logging config, which a reload may still change).
type RunConfig struct {
	DeviceName string
	DeviceKind vdevice.Kind
	PhysIface  string

	PeerIP    string
	LocalPort int

	ROHCEnabled bool

	LimitPackets  int
	SizeThreshold int
	Timeout       time.Duration
	Period        time.Duration
	MTU           int

	DebugVerbosity int
}

// ApplyDefaults fills in the zero-value defaults and the §3 defaulting
// rule for LimitPackets: if any of {SizeThreshold, Timeout, Period} was
// tightened from its sentinel and LimitPackets was left unset, it
// becomes 100; if none of the four triggers was set, every packet is
// sent immediately (LimitPackets = 1).
func (c *RunConfig) ApplyDefaults() {
	if c.MTU <= 0 {
		c.MTU = 1500
	}
	if c.LocalPort <= 0 {
		c.LocalPort = common.DefaultPort
	}
	if c.SizeThreshold <= 0 {
		c.SizeThreshold = common.DefaultMTU
	}
	defaultTimeout := time.Duration(common.DefaultTimeoutMicros) * time.Microsecond
	defaultPeriod := time.Duration(common.DefaultPeriodMicros) * time.Microsecond
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Period <= 0 {
		c.Period = defaultPeriod
	}

	anyTightened := c.SizeThreshold != common.DefaultMTU || c.Timeout != defaultTimeout || c.Period != defaultPeriod
	switch {
	case c.LimitPackets > 0:
		// explicit -n, left untouched
	case anyTightened:
		c.LimitPackets = 100
	default:
		c.LimitPackets = 1
	}
	if c.LimitPackets > 100 {
		c.LimitPackets = 100
	}

	if c.DebugVerbosity < 0 {
		c.DebugVerbosity = 0
	}
	if c.DebugVerbosity > 3 {
		c.DebugVerbosity = 3
	}
}
