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

// Package eventlog is the C7 log sink: a tab-separated, one-line-per-
// event append stream, distinct from the operational logger in
// package logger. Every line is synced to its writer immediately, so
// a SIGKILL mid-run never loses a complete line.
package eventlog

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Action is the first field of an event line.
type Action string

const (
	ActionRec     Action = "rec"
	ActionSent    Action = "sent"
	ActionForward Action = "forward"
	ActionError   Action = "error"
)

// Kind is the second field of an event line.
type Kind string

const (
	KindNative       Kind = "native"
	KindMuxed        Kind = "muxed"
	KindDemuxed      Kind = "demuxed"
	KindROHCFeedback Kind = "ROHC_feedback"
	KindBadSeparator Kind = "bad_separator"
	KindDemuxBadLen  Kind = "demux_bad_length"
	KindComprFailed  Kind = "compr_failed"
	KindDecompFailed Kind = "decomp_failed"
)

// Reason is a trailing extra on a "sent muxed" line, naming which
// trigger(s) caused the flush.
type Reason string

const (
	ReasonNumPacketLimit Reason = "numpacket_limit"
	ReasonSizeLimit      Reason = "size_limit"
	ReasonTimeout        Reason = "timeout"
	ReasonPeriod         Reason = "period"
	ReasonMTU            Reason = "MTU"
)

// Event is one line of the event log.
type Event struct {
	Action    Action
	Kind      Kind
	Bytes     int
	Counter   int64
	Direction string // "from" or "to", empty if not applicable
	PeerIP    string
	PeerPort  int
	Extras    []Reason
}

// Sink writes Events as tab-separated lines and fsyncs after each one.
type Sink struct {
	core zapcore.Core
}

// Options configures where event lines go.
type Options struct {
	// Stdout sends events to stdout instead of a file. Takes priority
	// over Filename when both are set.
	Stdout bool

	Filename   string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

// New builds a Sink. A zero Options value is valid: it discards events,
// used when neither -l nor -L was given.
func New(opt Options) *Sink {
	var w zapcore.WriteSyncer
	switch {
	case opt.Stdout:
		w = zapcore.AddSync(os.Stdout)
	case opt.Filename != "":
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAge,
			LocalTime:  true,
		})
	default:
		w = zapcore.AddSync(discard{})
	}

	core := zapcore.NewCore(newLineEncoder(), w, zapcore.InfoLevel)
	return &Sink{core: core}
}

// Emit appends one event line, flushing immediately.
func (s *Sink) Emit(ev Event) {
	ent := zapcore.Entry{Time: time.Now()}
	_ = s.core.Write(ent, []zapcore.Field{zap.Any("event", ev)})
	_ = s.core.Sync()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Sync() error                 { return nil }
