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

package engine

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netmux/muxtun/internal/bundlebuf"
	"github.com/netmux/muxtun/internal/eventlog"
	"github.com/netmux/muxtun/internal/headercodec"
	"github.com/netmux/muxtun/internal/pubsub"
	"github.com/netmux/muxtun/internal/triggerclock"
)

// fakeDevice is a minimal in-memory vdevice.Device for tests that don't
// need a real kernel tun/tap handle.
type fakeDevice struct {
	written chan []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{written: make(chan []byte, 16)}
}

func (f *fakeDevice) Read(p []byte) (int, error)  { select {} }
func (f *fakeDevice) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	f.written <- cp
	return len(p), nil
}
func (f *fakeDevice) Close() error  { return nil }
func (f *fakeDevice) Name() string { return "fake0" }

func newTestEngine(t *testing.T, limitPackets int) (*Engine, *net.UDPConn) {
	t.Helper()

	peerConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = peerConn.Close() })

	selfConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = selfConn.Close() })

	codec, err := headercodec.New("passthrough", headercodec.Options{})
	require.NoError(t, err)

	e := &Engine{
		cfg: RunConfig{
			MTU:           1500,
			LimitPackets:  limitPackets,
			SizeThreshold: 1472,
			LocalPort:     selfConn.LocalAddr().(*net.UDPAddr).Port,
		},
		dev:    newFakeDevice(),
		conn:   selfConn,
		peer:   peerConn.LocalAddr().(*net.UDPAddr),
		bundle: bundlebuf.New(1500, limitPackets),
		clock: triggerclock.New(triggerclock.Config{
			LimitPackets:  limitPackets,
			SizeThreshold: 1472,
			Timeout:       time.Hour,
			Period:        time.Hour,
		}, time.Now()),
		codec:     codec,
		events:    eventlog.New(eventlog.Options{}),
		feed:      pubsub.New(),
		startedAt: time.Now(),
		runID:     "test",
	}
	e.met = newMetrics()
	return e, peerConn
}

func TestHandleDeviceReadable_SinglePacketImmediateFlush(t *testing.T) {
	e, peerConn := newTestEngine(t, 1)

	payload := bytes.Repeat([]byte{0xAB}, 40)
	e.handleDeviceReadable(payload)

	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, err := peerConn.Read(buf)
	require.NoError(t, err)

	require.Equal(t, 41, n)
	require.Equal(t, byte(0x28), buf[0])
	require.Equal(t, payload, buf[1:n])
}

func TestHandleDeviceReadable_BelowThresholdNoSendUntilTimeout(t *testing.T) {
	e, peerConn := newTestEngine(t, 3)

	e.handleDeviceReadable(bytes.Repeat([]byte{0x01}, 40))
	e.handleDeviceReadable(bytes.Repeat([]byte{0x02}, 50))

	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 2048)
	_, err := peerConn.Read(buf)
	require.Error(t, err) // nothing sent yet, -n 3 not reached

	e.handleTimeout()

	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := peerConn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 92, n)
}

func TestHandleSocketReadable_NativePassthrough(t *testing.T) {
	e, peerConn := newTestEngine(t, 1)
	fd := e.dev.(*fakeDevice)

	// peerConn's ephemeral port differs from e.cfg.LocalPort, so this
	// is treated as native passthrough, not a bundle.
	_, err := peerConn.WriteToUDP([]byte("raw-ip-packet"), &net.UDPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: e.cfg.LocalPort,
	})
	require.NoError(t, err)

	buf := make([]byte, 2048)
	n, addr, err := e.conn.ReadFromUDP(buf)
	require.NoError(t, err)

	e.handleSocketReadable(sockMsg{data: buf[:n], addr: addr})

	select {
	case got := <-fd.written:
		require.Equal(t, "raw-ip-packet", string(got))
	case <-time.After(time.Second):
		t.Fatal("expected a device write")
	}
}
