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
	"net"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/netmux/muxtun/internal/bundlebuf"
	"github.com/netmux/muxtun/internal/eventlog"
	"github.com/netmux/muxtun/internal/headercodec"
	"github.com/netmux/muxtun/internal/pubsub"
	"github.com/netmux/muxtun/internal/triggerclock"
	"github.com/netmux/muxtun/internal/vdevice"
	"github.com/netmux/muxtun/logger"
)

// Engine owns every piece of mutable core state: the bundle buffer,
// the header codec contexts, and the last-sent timestamp inside the
// trigger clock. All of it is touched by exactly one goroutine, the
// loop started by Run.
type Engine struct {
	cfg RunConfig

	dev  vdevice.Device
	conn *net.UDPConn
	peer *net.UDPAddr

	bundle *bundlebuf.Buffer
	clock  *triggerclock.Clock
	codec  headercodec.Codec

	events *eventlog.Sink
	feed   *pubsub.PubSub
	met    *metrics

	startedAt time.Time
	runID     string

	packetCounter int64
}

// New acquires every startup resource (physical interface MTU, vdevice,
// UDP socket, header codec) and wires an Engine. Independent acquisition
// failures are collected so a user fixing two bad flags at once sees
// both errors.
func New(cfg RunConfig, events *eventlog.Sink, runID string) (*Engine, error) {
	cfg.ApplyDefaults()

	var merr *multierror.Error

	ifc, err := net.InterfaceByName(cfg.PhysIface)
	if err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "look up interface %s", cfg.PhysIface))
	} else {
		cfg.MTU = min(max(ifc.MTU, 128), 1500)
	}

	dev, err := vdevice.Open(cfg.DeviceName, cfg.DeviceKind)
	if err != nil {
		merr = multierror.Append(merr, errors.Wrap(err, "open virtual device"))
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.LocalPort})
	if err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "bind udp port %d", cfg.LocalPort))
	}

	peer, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.PeerIP, itoa(cfg.LocalPort)))
	if err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "resolve peer address %s", cfg.PeerIP))
	}

	codecName := "passthrough"
	if cfg.ROHCEnabled {
		codecName = "rohc"
	}
	codec, err := headercodec.New(codecName, headercodec.Options{
		MaxCID:         15,
		DebugVerbosity: cfg.DebugVerbosity,
		Seed:           time.Now().UnixNano(),
	})
	if err != nil {
		merr = multierror.Append(merr, errors.Wrap(err, "construct header codec"))
	}

	if merr.ErrorOrNil() != nil {
		return nil, merr.ErrorOrNil()
	}

	clock := triggerclock.New(triggerclock.Config{
		LimitPackets:  cfg.LimitPackets,
		SizeThreshold: cfg.SizeThreshold,
		Timeout:       cfg.Timeout,
		Period:        cfg.Period,
	}, time.Now())

	e := &Engine{
		cfg:       cfg,
		dev:       dev,
		conn:      conn,
		peer:      peer,
		bundle:    bundlebuf.New(cfg.MTU, cfg.LimitPackets),
		clock:     clock,
		codec:     codec,
		events:    events,
		feed:      pubsub.New(),
		startedAt: time.Now(),
		runID:     runID,
	}
	e.met = newMetrics()

	logger.Infof("engine started: device=%s peer=%s:%d mtu=%d codec=%s",
		cfg.DeviceName, cfg.PeerIP, cfg.LocalPort, cfg.MTU, codecName)

	return e, nil
}

// Close releases every exclusively-owned resource. Safe to call once,
// after Run has returned.
func (e *Engine) Close() error {
	var merr *multierror.Error
	if e.dev != nil {
		merr = multierror.Append(merr, e.dev.Close())
	}
	if e.conn != nil {
		merr = multierror.Append(merr, e.conn.Close())
	}
	return merr.ErrorOrNil()
}

// Feed exposes the live-event pubsub bus; every published event is
// pushed to its subscribers. No admin route subscribes to it.
func (e *Engine) Feed() *pubsub.PubSub { return e.feed }

func (e *Engine) publish(ev eventlog.Event) {
	e.events.Emit(ev)
	e.met.eventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	e.feed.Publish(ev)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [12]byte
	p := len(buf)
	for i > 0 {
		p--
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}
