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

// Package bundlebuf accumulates (separator, payload) pairs into a single
// outgoing bundle, never letting the accumulated size exceed the
// configured MTU.
//
// The accumulator shape (a capped byte slice with Write/Len/Reset/Clone)
// is the same one internal/bufbytes used for a truncating write; here the
// cap is enforced up front by predicting the post-append size instead of
// truncating after the fact, since a truncated packet would corrupt the
// bundle's framing.
package bundlebuf

import (
	"github.com/valyala/bytebufferpool"

	"github.com/netmux/muxtun/internal/separator"
)

// Outcome is the result of TryAppend.
type Outcome int

const (
	// Appended means the payload was folded into the buffer; no flush
	// is needed yet.
	Appended Outcome = iota

	// Flushed means the buffer had no room for the offered payload. The
	// buffer was drained (Bundle holds its former contents) and reset;
	// the caller must now call AppendNow with the same payload.
	Flushed
)

// Result is returned by TryAppend.
type Result struct {
	Outcome Outcome
	Bundle  []byte
}

// Buffer accumulates packets into a bundle of at most mtu bytes.
//
// Not safe for concurrent use; owned exclusively by the event loop, per
// the single-threaded cooperative model.
type Buffer struct {
	mtu          int
	limitPackets int
	count        int
	bb           *bytebufferpool.ByteBuffer
}

// New returns an empty Buffer capped at mtu bytes and limitPackets packets.
func New(mtu, limitPackets int) *Buffer {
	return &Buffer{
		mtu:          mtu,
		limitPackets: limitPackets,
		bb:           bytebufferpool.Get(),
	}
}

// TryAppend offers payload to the buffer.
//
// If appending payload (its separator plus its bytes) would push the
// buffer past the configured MTU, the current contents are drained and
// returned as Flushed without writing payload; the caller must then call
// AppendNow(payload) against the now-empty buffer.
func (b *Buffer) TryAppend(payload []byte) (Result, error) {
	predicted := b.bb.Len() + separator.Len(len(payload)) + len(payload)
	if predicted > b.mtu {
		return Result{Outcome: Flushed, Bundle: b.Drain()}, nil
	}

	if err := b.AppendNow(payload); err != nil {
		return Result{}, err
	}
	return Result{Outcome: Appended}, nil
}

// AppendNow appends payload unconditionally. Callers must only use this
// directly after a Flushed result (or on a buffer known to be empty);
// TryAppend is the size-checked entry point for everything else.
func (b *Buffer) AppendNow(payload []byte) error {
	sep, err := separator.Encode(len(payload))
	if err != nil {
		return err
	}
	_, _ = b.bb.Write(sep)
	_, _ = b.bb.Write(payload)
	b.count++
	return nil
}

// Drain returns the accumulated bundle and resets the buffer to empty.
// Returns an empty (nil) bundle if nothing was buffered.
func (b *Buffer) Drain() []byte {
	if b.count == 0 {
		return nil
	}

	out := make([]byte, b.bb.Len())
	copy(out, b.bb.B)

	bytebufferpool.Put(b.bb)
	b.bb = bytebufferpool.Get()
	b.count = 0
	return out
}

// Count returns the number of packets currently buffered.
func (b *Buffer) Count() int {
	return b.count
}

// Size returns the number of bytes currently buffered.
func (b *Buffer) Size() int {
	return b.bb.Len()
}

// LimitPackets returns the configured packet-count trigger.
func (b *Buffer) LimitPackets() int {
	return b.limitPackets
}
