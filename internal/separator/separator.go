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

// Package separator implements the one- or two-byte length prefix that
// precedes every packet inside a multiplexed bundle.
//
// Byte 0 layout (bit 7 is most significant):
//
//	bit 7 (MBB) - always 0 on the wire; a receiver seeing 1 treats the
//	              whole datagram as malformed.
//	bit 6 (PFF) - 0 selects the short (1 byte) form, 1 the long (2 byte) form.
//	bits 5..0   - high bits of the length in the long form, or the whole
//	              length (0..63) in the short form.
package separator

import "github.com/pkg/errors"

const (
	mbbMask = 0x80
	pffMask = 0x40
	lenMask = 0x3F

	// MaxShortLength is the largest length encodable in the 1-byte form.
	MaxShortLength = 1<<6 - 1

	// MaxLongLength is the largest length encodable in the 2-byte form.
	MaxLongLength = 1<<14 - 1
)

var (
	// ErrLengthOutOfRange is returned by Encode when l is negative or
	// exceeds MaxLongLength.
	ErrLengthOutOfRange = errors.New("separator: length out of range")

	// ErrBadSeparator is returned by Decode when byte 0 has MBB set.
	ErrBadSeparator = errors.New("separator: MBB bit set, malformed bundle")

	// ErrTruncatedSeparator is returned by Decode when PFF=1 but only one
	// byte remains in the stream.
	ErrTruncatedSeparator = errors.New("separator: truncated long-form separator")
)

// Len returns the number of bytes Encode would emit for l, without
// allocating. Used by callers (the bundle buffer) to predict sizes.
func Len(l int) int {
	if l < 1<<6 {
		return 1
	}
	return 2
}

// Encode returns the wire encoding of length l.
func Encode(l int) ([]byte, error) {
	return AppendEncode(nil, l)
}

// AppendEncode appends the wire encoding of length l to dst and returns
// the extended slice.
func AppendEncode(dst []byte, l int) ([]byte, error) {
	if l < 0 || l > MaxLongLength {
		return nil, errors.Wrapf(ErrLengthOutOfRange, "length=%d", l)
	}
	if l < 1<<6 {
		return append(dst, byte(l)&lenMask), nil
	}
	b0 := pffMask | (byte(l>>8) & lenMask)
	b1 := byte(l & 0xFF)
	return append(dst, b0, b1), nil
}

// Decode reads a separator from the front of b, returning the decoded
// length and the number of bytes consumed (1 or 2).
func Decode(b []byte) (length int, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, errors.Wrap(ErrTruncatedSeparator, "empty input")
	}

	b0 := b[0]
	if b0&mbbMask != 0 {
		return 0, 0, ErrBadSeparator
	}

	if b0&pffMask == 0 {
		return int(b0 & lenMask), 1, nil
	}

	if len(b) < 2 {
		return 0, 0, ErrTruncatedSeparator
	}

	// b[1] must be read as an unsigned byte: the source this design is
	// based on read it signed and truncated lengths >= 128.
	length = int(b0&lenMask)<<8 | int(b[1])
	return length, 2, nil
}
