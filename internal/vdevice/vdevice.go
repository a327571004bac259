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

// Package vdevice opens the local tun/tap device the engine reads
// packets from and writes packets to, in no-packet-information mode.
package vdevice

import (
	"io"

	"github.com/pkg/errors"
	"github.com/songgao/water"
)

// Kind selects tun (layer 3) or tap (layer 2); -a selects Tap, Tun is
// the default.
type Kind int

const (
	Tun Kind = iota
	Tap
)

// Device is the packet-oriented read/write handle the event loop
// selects over. Exclusive to the loop goroutine plus the one
// blocking-read-to-channel pump feeding it, per the single-owner
// resource model.
type Device interface {
	io.ReadWriteCloser
	Name() string
}

// Open creates or attaches to a virtual device named name, of the given
// Kind. Read-write is packet-oriented with no link-layer framing.
func Open(name string, kind Kind) (Device, error) {
	cfg := water.Config{
		DeviceType: waterDeviceType(kind),
	}
	cfg.Name = name

	iface, err := water.New(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "vdevice: open %s", name)
	}
	return iface, nil
}

func waterDeviceType(kind Kind) water.DeviceType {
	if kind == Tap {
		return water.TAP
	}
	return water.TUN
}
