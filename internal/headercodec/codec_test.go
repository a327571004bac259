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

package headercodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Passthrough(t *testing.T) {
	c, err := New("passthrough", Options{})
	require.NoError(t, err)
	assert.Equal(t, "passthrough", c.Name())

	pkt := []byte{0x45, 0x00, 0x00, 0x14}
	cr := c.Compress(pkt)
	assert.Equal(t, CompressOK, cr.Outcome)
	assert.Equal(t, pkt, cr.Bytes)

	dr := c.Decompress(pkt)
	assert.Equal(t, DecompressOK, dr.Outcome)
	assert.Equal(t, pkt, dr.Packet)

	c.Reset() // no-op, must not panic
}

func TestGet_UnknownVariant(t *testing.T) {
	_, err := Get("does-not-exist")
	assert.Error(t, err)
}

func TestNew_UnknownVariant(t *testing.T) {
	_, err := New("does-not-exist", Options{})
	assert.Error(t, err)
}

func TestClassifyIP(t *testing.T) {
	cases := []struct {
		name string
		pkt  []byte
		want ipClass
	}{
		{"empty", nil, classUnknown},
		{"garbage", []byte{0xFF, 0xFF, 0xFF, 0xFF}, classUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyIP(tc.pkt))
		})
	}
}

func TestClassifyIP_IPv4UDP(t *testing.T) {
	pkt := buildIPv4UDP(t)
	assert.Equal(t, classUDP, classifyIP(pkt))
}

// buildIPv4UDP hand-assembles a minimal valid IPv4/UDP packet (20-byte
// IP header, no options, 8-byte UDP header, empty payload) so the
// classifier test does not need a packet-crafting dependency.
func buildIPv4UDP(t *testing.T) []byte {
	t.Helper()
	pkt := make([]byte, 28)
	pkt[0] = 0x45 // version 4, IHL 5
	pkt[2] = 0x00
	pkt[3] = 28 // total length
	pkt[8] = 64 // TTL
	pkt[9] = 17 // UDP
	// source/dest addresses left zero; checksum left zero (not validated
	// by gopacket's DecodeFromBytes for IPv4).
	udp := pkt[20:]
	udp[0], udp[1] = 0x00, 0x35 // src port 53
	udp[2], udp[3] = 0x00, 0x35 // dst port 53
	udp[4], udp[5] = 0x00, 0x08 // length 8
	return pkt
}
