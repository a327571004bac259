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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_NoTriggersSet(t *testing.T) {
	cfg := RunConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, 1, cfg.LimitPackets)
	assert.Equal(t, 1472, cfg.SizeThreshold)
	assert.Equal(t, 1500, cfg.MTU)
	assert.Equal(t, 55555, cfg.LocalPort)
	assert.Equal(t, 100*time.Second, cfg.Timeout)
	assert.Equal(t, 100*time.Second, cfg.Period)
}

func TestApplyDefaults_TimeoutTightened(t *testing.T) {
	cfg := RunConfig{Timeout: 5 * time.Second}
	cfg.ApplyDefaults()
	assert.Equal(t, 100, cfg.LimitPackets)
}

func TestApplyDefaults_SizeThresholdTightened(t *testing.T) {
	cfg := RunConfig{SizeThreshold: 512}
	cfg.ApplyDefaults()
	assert.Equal(t, 100, cfg.LimitPackets)
}

func TestApplyDefaults_ExplicitLimitPacketsWins(t *testing.T) {
	cfg := RunConfig{LimitPackets: 3}
	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.LimitPackets)
}

func TestApplyDefaults_LimitPacketsClampedTo100(t *testing.T) {
	cfg := RunConfig{LimitPackets: 500}
	cfg.ApplyDefaults()
	assert.Equal(t, 100, cfg.LimitPackets)
}

func TestApplyDefaults_DebugVerbosityClamped(t *testing.T) {
	cfg := RunConfig{DebugVerbosity: 9}
	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.DebugVerbosity)

	cfg2 := RunConfig{DebugVerbosity: -1}
	cfg2.ApplyDefaults()
	assert.Equal(t, 0, cfg2.DebugVerbosity)
}

func TestApplyDefaults_PeriodTightened(t *testing.T) {
	cfg := RunConfig{Period: 5 * time.Second}
	cfg.ApplyDefaults()
	assert.Equal(t, 100, cfg.LimitPackets)
}
