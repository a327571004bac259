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
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/netmux/muxtun/internal/bundlebuf"
	"github.com/netmux/muxtun/internal/demux"
	"github.com/netmux/muxtun/internal/eventlog"
	"github.com/netmux/muxtun/internal/headercodec"
	"github.com/netmux/muxtun/internal/rescue"
	"github.com/netmux/muxtun/internal/triggerclock"
	"github.com/netmux/muxtun/logger"
)

type sockMsg struct {
	data []byte
	addr *net.UDPAddr
}

// Run drives the single-threaded cooperative event loop (C6) until ctx
// is canceled or a fatal read/write error occurs. It is the only
// goroutine that ever touches e.bundle, e.clock, or e.codec.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	devCh := make(chan []byte, 64)
	sockCh := make(chan sockMsg, 64)
	fatalCh := make(chan error, 2)

	go e.pumpDevice(ctx, devCh, fatalCh)
	go e.pumpSocket(ctx, sockCh, fatalCh)
	go e.runMetricsTicker(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		remaining := e.clock.TimeUntilPeriod(time.Now())
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(remaining)

		// Socket-readable takes priority over vdevice-readable when both
		// are ready in the same iteration (spec.md §4.6): a plain select
		// over all five cases picks pseudo-randomly among ready cases, so
		// the priority is enforced with a non-blocking peek at the
		// higher-priority cases before falling into the full select.
		select {
		case <-ctx.Done():
			return nil

		case err := <-fatalCh:
			return errors.Wrap(err, "engine: fatal I/O error")

		case msg := <-sockCh:
			e.handleSocketReadable(msg)
			continue

		default:
		}

		select {
		case <-ctx.Done():
			return nil

		case err := <-fatalCh:
			return errors.Wrap(err, "engine: fatal I/O error")

		case msg := <-sockCh:
			e.handleSocketReadable(msg)

		case pkt := <-devCh:
			e.handleDeviceReadable(pkt)

		case <-timer.C:
			e.handleTimeout()
		}
	}
}

// runMetricsTicker refreshes the uptime gauge once a second. It is one
// of the non-C6 goroutines C11 recovers independently of the core loop
// (admin server, metrics ticker): a panic here is logged and counted,
// not fatal to the process.
func (e *Engine) runMetricsTicker(ctx context.Context) {
	defer rescue.HandleCrash()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.met.uptimeSeconds.Set(time.Since(e.startedAt).Seconds())
		}
	}
}

func (e *Engine) pumpDevice(ctx context.Context, out chan<- []byte, fatal chan<- error) {
	buf := make([]byte, e.cfg.MTU)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := e.dev.Read(buf)
		if err != nil {
			select {
			case <-ctx.Done():
			case fatal <- errors.Wrap(err, "read virtual device"):
			}
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])

		select {
		case out <- pkt:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) pumpSocket(ctx context.Context, out chan<- sockMsg, fatal chan<- error) {
	buf := make([]byte, 1<<16)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
			case fatal <- errors.Wrap(err, "read udp socket"):
			}
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case out <- sockMsg{data: data, addr: addr}:
		case <-ctx.Done():
			return
		}
	}
}

// handleSocketReadable implements spec.md §4.6 step 5's socket branch:
// a datagram whose source port equals the configured multiplex port is
// a bundle; any other source port is forwarded verbatim.
func (e *Engine) handleSocketReadable(msg sockMsg) {
	if msg.addr.Port != e.cfg.LocalPort {
		e.writeDevice(msg.data, eventlog.KindNative)
		return
	}

	res := demux.Demux(msg.data)
	for _, pkt := range res.Packets {
		e.decompressAndInject(pkt, msg.addr)
	}
	if res.Abort != "" {
		e.publish(eventlog.Event{
			Action:    eventlog.ActionError,
			Kind:      eventlog.Kind(res.Abort),
			Bytes:     len(msg.data),
			Counter:   e.packetCounter,
			Direction: "from",
			PeerIP:    msg.addr.IP.String(),
			PeerPort:  msg.addr.Port,
		})
	}
}

func (e *Engine) decompressAndInject(pkt []byte, addr *net.UDPAddr) {
	dr := e.codec.Decompress(pkt)
	switch dr.Outcome {
	case headercodec.DecompressOK:
		e.packetCounter++
		e.publish(eventlog.Event{
			Action:    eventlog.ActionRec,
			Kind:      eventlog.KindDemuxed,
			Bytes:     len(dr.Packet),
			Counter:   e.packetCounter,
			Direction: "from",
			PeerIP:    addr.IP.String(),
			PeerPort:  addr.Port,
		})
		if _, err := e.dev.Write(dr.Packet); err != nil {
			logger.Warnf("write virtual device: %v", err)
		}

	case headercodec.DecompressFeedbackOnly:
		e.publish(eventlog.Event{
			Action:  eventlog.ActionRec,
			Kind:    eventlog.KindROHCFeedback,
			Bytes:   len(pkt),
			Counter: e.packetCounter,
		})

	case headercodec.DecompressError:
		e.publish(eventlog.Event{
			Action:  eventlog.ActionError,
			Kind:    eventlog.KindDecompFailed,
			Bytes:   len(pkt),
			Counter: e.packetCounter,
		})
	}
}

func (e *Engine) writeDevice(pkt []byte, kind eventlog.Kind) {
	e.packetCounter++
	e.publish(eventlog.Event{
		Action:  eventlog.ActionForward,
		Kind:    kind,
		Bytes:   len(pkt),
		Counter: e.packetCounter,
	})
	if _, err := e.dev.Write(pkt); err != nil {
		logger.Warnf("write virtual device: %v", err)
	}
}

// handleDeviceReadable implements spec.md §4.6 step 5's vdevice branch:
// compress, fold into the bundle buffer, and send on any trigger.
func (e *Engine) handleDeviceReadable(pkt []byte) {
	cr := e.codec.Compress(pkt)
	switch cr.Outcome {
	case headercodec.CompressSegmented:
		e.publish(eventlog.Event{Action: eventlog.ActionSent, Kind: eventlog.KindDemuxed, Bytes: len(pkt)})
	case headercodec.CompressError:
		e.publish(eventlog.Event{Action: eventlog.ActionError, Kind: eventlog.KindComprFailed, Bytes: len(pkt)})
		return
	}

	payload := cr.Bytes

	res, err := e.bundle.TryAppend(payload)
	if err != nil {
		logger.Warnf("bundle append: %v", err)
		return
	}
	if res.Outcome == bundlebuf.Flushed {
		e.sendBundle(res.Bundle, eventlog.ReasonMTU)
		if _, err := e.bundle.TryAppend(payload); err != nil {
			logger.Warnf("bundle append after flush: %v", err)
		}
	}
	e.met.packetsSent.Inc()

	now := time.Now()
	if reason := e.clock.ShouldFlush(now, e.bundle.Count(), e.bundle.Size()); reason.Any() {
		bundle := e.bundle.Drain()
		e.sendBundleMulti(bundle, reason)
		e.clock.MarkSent(now)
	}
}

// handleTimeout implements spec.md §4.6 step 5's "neither" branch: the
// wait timed out. MarkSent fires unconditionally; the "timeout" reason
// is only meaningful when data was actually sent, resolving the
// aliasing spec.md §9 calls out between a period tick and an idle
// timeout with nothing staged.
func (e *Engine) handleTimeout() {
	now := time.Now()
	if e.bundle.Count() > 0 {
		bundle := e.bundle.Drain()
		e.sendBundle(bundle, eventlog.ReasonPeriod)
	}
	e.clock.MarkSent(now)
}

func (e *Engine) sendBundleMulti(bundle []byte, reason triggerclock.Reason) {
	var extras []eventlog.Reason
	if reason.NumPacketLimit {
		extras = append(extras, eventlog.ReasonNumPacketLimit)
	}
	if reason.SizeLimit {
		extras = append(extras, eventlog.ReasonSizeLimit)
	}
	if reason.Timeout {
		extras = append(extras, eventlog.ReasonTimeout)
	}
	e.sendBundleExtras(bundle, extras)
}

func (e *Engine) sendBundle(bundle []byte, reason eventlog.Reason) {
	e.sendBundleExtras(bundle, []eventlog.Reason{reason})
}

func (e *Engine) sendBundleExtras(bundle []byte, extras []eventlog.Reason) {
	if len(bundle) == 0 {
		return
	}
	n, err := e.conn.WriteToUDP(bundle, e.peer)
	if err != nil {
		logger.Warnf("send bundle: %v", err)
		return
	}
	e.met.bundlesSent.Inc()
	e.met.bytesSent.Add(float64(n))
	e.publish(eventlog.Event{
		Action:    eventlog.ActionSent,
		Kind:      eventlog.KindMuxed,
		Bytes:     n,
		Counter:   e.packetCounter,
		Direction: "to",
		PeerIP:    e.peer.IP.String(),
		PeerPort:  e.peer.Port,
		Extras:    extras,
	})
}
