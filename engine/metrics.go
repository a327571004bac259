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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netmux/muxtun/common"
)

type metrics struct {
	eventsTotal   *prometheus.CounterVec
	bundlesSent   prometheus.Counter
	packetsSent   prometheus.Counter
	bytesSent     prometheus.Counter
	uptimeSeconds prometheus.Gauge
}

// sharedMetrics registers the collectors with the default registry once
// per process; every later newMetrics call returns the same set.
var sharedMetrics = sync.OnceValue(buildMetrics)

func newMetrics() *metrics { return sharedMetrics() }

func buildMetrics() *metrics {
	return &metrics{
		eventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "events_total",
			Help:      "event log lines emitted, by kind",
		}, []string{"kind"}),
		bundlesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "bundles_sent_total",
			Help:      "bundles transmitted to the peer",
		}),
		packetsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "packets_sent_total",
			Help:      "packets folded into transmitted bundles",
		}),
		bytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "bytes_sent_total",
			Help:      "wire bytes transmitted to the peer",
		}),
		uptimeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime_seconds",
			Help:      "seconds since process start, refreshed once a second by the metrics ticker",
		}),
	}
}
