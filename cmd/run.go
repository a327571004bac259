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

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/netmux/muxtun/common"
	"github.com/netmux/muxtun/confengine"
	"github.com/netmux/muxtun/engine"
	"github.com/netmux/muxtun/internal/eventlog"
	"github.com/netmux/muxtun/internal/rescue"
	"github.com/netmux/muxtun/internal/sigs"
	"github.com/netmux/muxtun/internal/vdevice"
	"github.com/netmux/muxtun/logger"
	"github.com/netmux/muxtun/server"
)

type runFlags struct {
	device   string
	iface    string
	peer     string
	port     int
	tap      bool
	rohc     bool
	limit    int
	size     int
	timeout  int64
	period   int64
	logFile  string
	autoLog  bool
	debug    int
	admin    string
	config   string
}

var runConfig runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tunnel optimizer",
	Example: "# muxtun run -i tun0 -e eth0 -c 203.0.113.9 -r",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runE()
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runConfig.device, "device", "i", "", "virtual device name (required)")
	f.StringVarP(&runConfig.iface, "iface", "e", "", "local physical interface (required)")
	f.StringVarP(&runConfig.peer, "peer", "c", "", "peer IPv4 address (required)")
	f.IntVarP(&runConfig.port, "port", "p", common.DefaultPort, "UDP port")
	f.BoolVarP(&runConfig.tap, "tap", "a", false, "use a tap (layer 2) device instead of tun")
	f.BoolVarP(&runConfig.rohc, "rohc", "r", false, "enable the ROHC header codec")
	f.IntVarP(&runConfig.limit, "limit-packets", "n", 0, "packet-count flush trigger (0 = unset, max 100)")
	f.IntVarP(&runConfig.size, "size-threshold", "b", common.DefaultMTU, "size-threshold flush trigger, bytes")
	f.Int64VarP(&runConfig.timeout, "idle-timeout", "t", common.DefaultTimeoutMicros, "idle-timeout flush trigger, microseconds")
	f.Int64VarP(&runConfig.period, "period", "P", common.DefaultPeriodMicros, "hard-period flush trigger, microseconds")
	f.StringVarP(&runConfig.logFile, "log-file", "l", "", "event log file path")
	f.BoolVarP(&runConfig.autoLog, "auto-log", "L", false, "auto-name the event log file (YYYY-MM-DD_HH.MM.SS)")
	f.IntVarP(&runConfig.debug, "debug", "d", 0, "debug verbosity, 0..3 (clamped)")
	f.StringVar(&runConfig.admin, "admin", "", "admin HTTP listen address (empty disables it)")
	f.StringVar(&runConfig.config, "config", "", "optional YAML config file; its server stanza configures the admin HTTP server, and --admin is ignored when it is given")

	_ = runCmd.MarkFlagRequired("device")
	_ = runCmd.MarkFlagRequired("iface")
	_ = runCmd.MarkFlagRequired("peer")

	rootCmd.AddCommand(runCmd)
}

func runE() error {
	kind := vdevice.Tun
	if runConfig.tap {
		kind = vdevice.Tap
	}

	cfg := engine.RunConfig{
		DeviceName:     runConfig.device,
		DeviceKind:     kind,
		PhysIface:      runConfig.iface,
		PeerIP:         runConfig.peer,
		LocalPort:      runConfig.port,
		ROHCEnabled:    runConfig.rohc,
		LimitPackets:   runConfig.limit,
		SizeThreshold:  runConfig.size,
		Timeout:        time.Duration(runConfig.timeout) * time.Microsecond,
		Period:         time.Duration(runConfig.period) * time.Microsecond,
		MTU:            1500,
		DebugVerbosity: runConfig.debug,
	}

	events := eventlog.New(eventlog.Options{
		Stdout:   false,
		Filename: eventLogPath(),
	})

	runID := uuid.New().String()
	eng, err := engine.New(cfg, events, runID)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer eng.Close()

	srv, err := adminServer()
	if err != nil {
		logger.Warnf("admin server disabled: %v", err)
	}
	if srv != nil {
		eng.RegisterAdminRoutes(srv)
		go func() {
			defer rescue.HandleCrash()
			if err := srv.ListenAndServe(); err != nil {
				logger.Warnf("admin server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigs.Terminate():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}
	return nil
}

func eventLogPath() string {
	if runConfig.autoLog {
		return time.Now().Format("2006-01-02_15.04.05")
	}
	return runConfig.logFile
}

func adminServer() (*server.Server, error) {
	if runConfig.admin == "" && runConfig.config == "" {
		return nil, nil
	}

	if runConfig.config != "" {
		cfg, err := confengine.LoadConfigPath(runConfig.config)
		if err != nil {
			return nil, err
		}
		return server.New(cfg)
	}

	yaml := fmt.Sprintf("server:\n  enabled: true\n  address: %q\n  pprof: false\n  timeout: 10s\n", runConfig.admin)
	cfg, err := confengine.LoadContent([]byte(yaml))
	if err != nil {
		return nil, err
	}
	return server.New(cfg)
}
