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

// Package headercodec wraps an (optional) ROHC compressor/decompressor
// pair behind a small tagged-variant interface, so the event loop never
// has to know whether header compression is actually enabled.
package headercodec

import (
	"github.com/pkg/errors"
)

// CompressOutcome tags the result of Compress.
type CompressOutcome int

const (
	// CompressOK means Bytes holds the compressed form.
	CompressOK CompressOutcome = iota

	// CompressSegmented means the compressed form exceeded the
	// reassembly MRRU; Bytes holds the original packet, sent verbatim.
	CompressSegmented

	// CompressError means the packet was dropped; Err holds why.
	CompressError
)

// CompressResult is returned by Codec.Compress.
type CompressResult struct {
	Outcome CompressOutcome
	Bytes   []byte
	Err     error
}

// DecompressOutcome tags the result of Decompress.
type DecompressOutcome int

const (
	// DecompressOK means Packet holds the recovered IP packet.
	DecompressOK DecompressOutcome = iota

	// DecompressFeedbackOnly means the input was a segment or
	// feedback-only frame; no IP packet was produced. Not an error.
	DecompressFeedbackOnly

	// DecompressError means the single packet was dropped; Err holds why.
	DecompressError
)

// DecompressResult is returned by Codec.Decompress.
type DecompressResult struct {
	Outcome DecompressOutcome
	Packet  []byte
	Err     error
}

// Codec is the polymorphic capability set a header codec variant
// implements: compress, decompress, reset.
type Codec interface {
	// Name identifies the variant ("passthrough", "rohc").
	Name() string

	// Compress transforms an outbound IP packet before it is folded
	// into a bundle.
	Compress(pkt []byte) CompressResult

	// Decompress recovers an IP packet from a received payload.
	Decompress(pkt []byte) DecompressResult

	// Reset clears any compression context state. The engine never
	// calls it; contexts live for the whole process.
	Reset()
}

// Options configures a Codec variant at construction time.
type Options struct {
	// MaxCID bounds the small-CID space (spec requires 15).
	MaxCID int

	// DebugVerbosity 0..3; ROHC trace callbacks are discarded below 3.
	DebugVerbosity int

	// Seed is derived from the wall clock at startup by the caller. The
	// rohc variant hashes it into a fingerprint that is logged at debug
	// verbosity 3; it is not passed to librohc and does not drive CID
	// allocation.
	Seed int64
}

// Factory constructs a Codec from Options.
type Factory func(Options) (Codec, error)

var factory = map[string]Factory{}

// Register adds a named Factory. Variant packages call this from init().
func Register(name string, f Factory) {
	factory[name] = f
}

// Get looks up a registered Factory by name.
func Get(name string) (Factory, error) {
	f, ok := factory[name]
	if !ok {
		return nil, errors.Errorf("headercodec: unknown variant (%s)", name)
	}
	return f, nil
}

// New constructs the named variant with opts.
func New(name string, opts Options) (Codec, error) {
	f, err := Get(name)
	if err != nil {
		return nil, err
	}
	return f(opts)
}
