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

package eventlog

import (
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var pool = buffer.NewPool()

// lineEncoder is a zapcore.Encoder that ignores the usual structured
// field set and instead renders the single "event" field carried by
// every Sink.Emit call as the tab-separated grammar:
//
//	<ts_µs> <action> <kind> <bytes> <counter> [from|to <peer_ip> <peer_port>] [<extra>...]
type lineEncoder struct {
	zapcore.ObjectEncoder
}

func newLineEncoder() zapcore.Encoder {
	return &lineEncoder{ObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	return &lineEncoder{ObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (e *lineEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := pool.Get()

	var ev Event
	for _, f := range fields {
		if f.Key == "event" {
			if v, ok := f.Interface.(Event); ok {
				ev = v
			}
		}
	}

	cols := []string{
		strconv.FormatInt(ent.Time.UnixMicro(), 10),
		string(ev.Action),
		string(ev.Kind),
		strconv.Itoa(ev.Bytes),
		strconv.FormatInt(ev.Counter, 10),
	}
	if ev.Direction != "" {
		cols = append(cols, ev.Direction, ev.PeerIP, strconv.Itoa(ev.PeerPort))
	}
	for _, extra := range ev.Extras {
		cols = append(cols, string(extra))
	}

	buf.AppendString(strings.Join(cols, "\t"))
	buf.AppendByte('\n')
	return buf, nil
}
