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

package zerocopy

import (
	"io"
)

// Reader is the zero-copy read API: Read returns up to n bytes without
// copying them out of the underlying slice.
type Reader interface {
	Read(n int) ([]byte, error)
}

// Writer is the zero-copy write API. Write never fails.
type Writer interface {
	Write(p []byte)
}

// Closer marks a Buffer fully consumed; subsequent Reads return io.EOF.
type Closer interface {
	Close()
}

// Buffer composes Reader/Writer/Closer. Every operation is zero-copy.
type Buffer interface {
	Writer
	Reader
	Closer
}

type buffer struct {
	r int
	b []byte
}

// NewBuffer wraps p as a Buffer.
//
// This is used to hand a single demultiplexed payload to the header
// codec and then to the virtual device write path without copying it
// out of the UDP datagram it was sliced from. The caller must not
// mutate p, and must fully consume (or Close) the Buffer before the
// datagram's backing array is reused for the next socket read.
func NewBuffer(p []byte) Buffer {
	return &buffer{
		b: p,
	}
}

// Read implements Reader.
func (buf *buffer) Read(n int) ([]byte, error) {
	if buf.r == len(buf.b) {
		return nil, io.EOF
	}

	if buf.r+n >= len(buf.b) {
		b := buf.b[buf.r:len(buf.b)]
		buf.r = len(buf.b)
		return b, nil
	}

	b := buf.b[buf.r : buf.r+n]
	buf.r += n
	return b, nil
}

// Write implements Writer.
func (buf *buffer) Write(p []byte) {
	buf.b = p
	buf.r = 0
}

// Close implements Closer.
func (buf *buffer) Close() {
	buf.r = len(buf.b)
}

// Bytes returns the full, unread payload in one call without copying.
// Most demux callers want the whole packet rather than a partial Read.
func Bytes(buf Buffer) ([]byte, error) {
	return buf.Read(maxPayload)
}

// maxPayload is larger than any packet this engine will ever slice
// (separator length is capped at 14 bits), so Bytes always drains the
// whole remaining payload in a single Read.
const maxPayload = 1 << 14
