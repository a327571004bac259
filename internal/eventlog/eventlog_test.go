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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_EmitFormat(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/events.log"

	s := New(Options{Filename: path, MaxSize: 1})
	s.Emit(Event{
		Action:  ActionSent,
		Kind:    KindMuxed,
		Bytes:   92,
		Counter: 2,
		Extras:  []Reason{ReasonTimeout},
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimRight(string(raw), "\n")
	fields := strings.Split(line, "\t")

	require.Len(t, fields, 6)
	assert.Equal(t, "sent", fields[1])
	assert.Equal(t, "muxed", fields[2])
	assert.Equal(t, "92", fields[3])
	assert.Equal(t, "2", fields[4])
	assert.Equal(t, "timeout", fields[5])
}

func TestSink_EmitWithPeer(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/events.log"

	s := New(Options{Filename: path})
	s.Emit(Event{
		Action:    ActionRec,
		Kind:      KindDemuxed,
		Bytes:     40,
		Counter:   1,
		Direction: "from",
		PeerIP:    "10.0.0.2",
		PeerPort:  55555,
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	fields := strings.Split(strings.TrimRight(string(raw), "\n"), "\t")
	require.Len(t, fields, 8)
	assert.Equal(t, "from", fields[5])
	assert.Equal(t, "10.0.0.2", fields[6])
	assert.Equal(t, "55555", fields[7])
}

func TestSink_DiscardWhenUnconfigured(t *testing.T) {
	s := New(Options{})
	s.Emit(Event{Action: ActionError, Kind: KindBadSeparator})
}
