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
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// ipClass names the carried L3/L4 combination. The rohc variant's
// Compress does not consult it; librohc picks the profile itself.
type ipClass int

const (
	classUnknown ipClass = iota
	classIPOnly
	classTCP
	classUDP
)

// classifyIP decodes a bare (no link layer - the vdevice is opened
// no-packet-information) IPv4 or IPv6 packet far enough to tell the
// compressor which profile applies.
//
// Adapted from sniffer.DecodeIPLayer/parsePacket: that decode walked an
// Ethernet frame down to TCP/UDP for protocol sniffing off a physical
// NIC; a tun device hands back the IP packet directly; there is no
// second DecodeIPLayer pass for OpenBSD-style loopback framing, since a
// tun device's output is consistently bare L3.
func classifyIP(pkt []byte) ipClass {
	var ipv4 layers.IPv4
	var ipv6 layers.IPv6
	var payload []byte
	var nextHeader layers.IPProtocol

	if err := ipv4.DecodeFromBytes(pkt, gopacket.NilDecodeFeedback); err == nil {
		payload = ipv4.Payload
		nextHeader = ipv4.Protocol
	} else if err := ipv6.DecodeFromBytes(pkt, gopacket.NilDecodeFeedback); err == nil {
		payload = ipv6.Payload
		nextHeader = ipv6.NextHeader
	} else {
		return classUnknown
	}

	switch nextHeader {
	case layers.IPProtocolTCP:
		var tcp layers.TCP
		if tcp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback) == nil {
			return classTCP
		}
	case layers.IPProtocolUDP:
		var udp layers.UDP
		if udp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback) == nil {
			return classUDP
		}
	}
	return classIPOnly
}
