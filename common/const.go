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

package common

const (
	// App is the process name used in logging and the admin surface.
	App = "muxtun"

	// Version is overwritten at link time via -ldflags; this is the
	// fallback for a go-run/unreleased build.
	Version = "v0.0.1"

	// DefaultPort is the UDP port the tunnel listens on and dials when
	// -p does not override it.
	DefaultPort = 55555

	// DefaultMTU is the default size-threshold flush trigger (-b): a
	// 1500-byte MTU minus 28 bytes of IPv4/UDP tunnel overhead.
	DefaultMTU = 1472

	// DefaultTimeoutMicros and DefaultPeriodMicros are the idle-flush and
	// hard-flush sentinel intervals (-t, -P) in microseconds, the flag
	// table's native unit: "effectively infinite" until tightened.
	DefaultTimeoutMicros = 100_000_000
	DefaultPeriodMicros  = 100_000_000
)
