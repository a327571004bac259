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

// Package demux splits a received bundle back into its ordered packets.
//
// A structural error (a malformed separator, or a declared length that
// runs past the end of the datagram) aborts the rest of that datagram;
// whatever was successfully decoded up to that point is still returned,
// since a partial bundle failure must not cost the peer every packet
// that arrived before the corruption.
package demux

import (
	"github.com/pkg/errors"

	"github.com/netmux/muxtun/internal/separator"
	"github.com/netmux/muxtun/internal/zerocopy"
)

// AbortReason names why demultiplexing stopped short of the datagram end.
type AbortReason string

const (
	// AbortNone means the datagram was fully and cleanly demultiplexed.
	AbortNone AbortReason = ""

	// AbortBadSeparator mirrors the §6 log kind bad_separator.
	AbortBadSeparator AbortReason = "bad_separator"

	// AbortBadLength mirrors the §6 log kind demux_bad_length.
	AbortBadLength AbortReason = "demux_bad_length"
)

// Result is the outcome of demultiplexing one datagram.
type Result struct {
	// Packets holds the payloads decoded before any abort, in arrival
	// order within the bundle. Each slice aliases the input datagram
	// (zero-copy); callers must consume each one before the datagram's
	// backing array is reused.
	Packets [][]byte

	// Abort is AbortNone on a clean parse, otherwise the reason parsing
	// stopped early.
	Abort AbortReason
}

// Demux parses datagram into its ordered packet sequence.
func Demux(datagram []byte) Result {
	var res Result
	pos := 0
	n := len(datagram)

	for pos < n {
		length, consumed, err := separator.Decode(datagram[pos:])
		if err != nil {
			if errors.Is(err, separator.ErrBadSeparator) {
				res.Abort = AbortBadSeparator
				return res
			}
			// A truncated separator at the tail of an otherwise valid
			// bundle is a length-accounting problem, same family as
			// demux_bad_length.
			res.Abort = AbortBadLength
			return res
		}

		start := pos + consumed
		end := start + length
		if end > n {
			res.Abort = AbortBadLength
			return res
		}

		buf := zerocopy.NewBuffer(datagram[start:end])
		payload, _ := zerocopy.Bytes(buf)
		res.Packets = append(res.Packets, payload)
		pos = end
	}

	return res
}
