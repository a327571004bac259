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
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netmux/muxtun/internal/sigs"
	"github.com/netmux/muxtun/logger"
	"github.com/netmux/muxtun/server"
)

// statusResponse is the body of GET /-/status.
type statusResponse struct {
	RunID         string `json:"run_id"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Peer          string `json:"peer"`
	MTU           int    `json:"mtu"`
	LimitPackets  int    `json:"limit_packets"`
	SizeThreshold int    `json:"size_threshold"`
	Codec         string `json:"codec"`
}

// RegisterAdminRoutes wires the admin HTTP surface onto srv: /metrics,
// /-/status, /-/reload, /-/logger. srv may be nil when the admin server
// is disabled, in which case this is a no-op.
func (e *Engine) RegisterAdminRoutes(srv *server.Server) {
	if srv == nil {
		return
	}

	srv.RegisterGetRoute("/metrics", promhttp.Handler().ServeHTTP)

	srv.RegisterGetRoute("/-/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			RunID:         e.runID,
			UptimeSeconds: int64(time.Since(e.startedAt).Seconds()),
			Peer:          e.peer.String(),
			MTU:           e.cfg.MTU,
			LimitPackets:  e.cfg.LimitPackets,
			SizeThreshold: e.cfg.SizeThreshold,
			Codec:         e.codec.Name(),
		}
		w.Header().Set("Content-Type", "application/json")
		body, err := json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})

	srv.RegisterPostRoute("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	srv.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		level := r.URL.Query().Get("level")
		if level == "" {
			http.Error(w, "missing level query parameter", http.StatusBadRequest)
			return
		}
		logger.SetLoggerLevel(level)
		w.WriteHeader(http.StatusOK)
	})
}
