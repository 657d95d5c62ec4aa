// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shadehub/shadehub/internal/audio"
	"github.com/shadehub/shadehub/internal/bluetooth"
	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/httpapi"
	xglog "github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/scene"
	"github.com/shadehub/shadehub/internal/scheduler"
	"github.com/shadehub/shadehub/internal/serialport"
	"github.com/shadehub/shadehub/internal/shade"
	"github.com/shadehub/shadehub/internal/shutdown"
	"github.com/shadehub/shadehub/internal/sun"
	"github.com/shadehub/shadehub/internal/wakeup"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "shadecored", Version: version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configDir := config.ParseString("CONFIG_DIR", "/etc/shadecored")
	cfgMgr, err := config.NewManager(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	cfg := cfgMgr.Get()

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "shadecored", Version: version})
	logger = xglog.WithComponent("main")
	if lvl := config.ParseString("LOG_LEVEL", ""); lvl != "" {
		xglog.Configure(xglog.Config{Level: lvl, Service: "shadecored", Version: version})
		logger = xglog.WithComponent("main")
	}

	logger.Info().Str("event", "startup").Str("version", version).Str("config_dir", configDir).Msg("starting shadecored")

	shadesPath := config.ParseString("SHADES_PATH", filepath.Join(configDir, "shades.toml"))
	shadeRegistry, err := shade.NewRegistry(shadesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "shades.load_failed").Str("path", shadesPath).Msg("failed to load shade topology")
	}

	serialAllowList := config.ParseStringList("SERIAL_ALLOWLIST", nil)
	if len(serialAllowList) == 0 {
		logger.Fatal().Str("event", "startup.check_failed").Msg("no serial port allow-list configured; set SERIAL_ALLOWLIST")
	}
	serial := serialport.New(serialAllowList)
	if _, err := serial.Reconnect(); err != nil {
		logger.Warn().Err(err).Str("event", "serial.initial_connect_failed").Msg("starting disconnected; first command will retry")
	}

	coord := shutdown.New()

	engine := shade.NewEngine(serial, coord)

	scenesPath := config.ParseString("SCENES_PATH", filepath.Join(configDir, "scenes.toml"))
	scenes, err := scene.NewRegistry(scenesPath, shadeRegistry.Exists)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "scenes.load_failed").Str("path", scenesPath).Msg("failed to load scene registry")
	}

	gateway := shade.NewGateway(shadeRegistry, scenes, engine)

	oracle := sun.NewOracle(cfg.Location.Lat, cfg.Location.Lon)

	sched, err := scheduler.New(cfgMgr, oracle, gateway)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "scheduler.init_failed").Msg("failed to build scene scheduler")
	}

	btClient := bluetooth.New(cfg.Audio.BluetoothAdapterPath, cfg.Audio.BluetoothDeviceAddr)
	audioCoord, err := audio.New(cfgMgr, btClient)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "audio.init_failed").Msg("failed to build audio coordinator")
	}

	wakeUp, err := wakeup.New(cfgMgr, gateway, audioCoord, sched)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "wakeup.init_failed").Msg("failed to build wake-up orchestrator")
	}
	if err := wakeUp.Restore(ctx); err != nil {
		logger.Warn().Err(err).Str("event", "wakeup.restore_failed").Msg("failed to restore wake-up arm state")
	}

	if err := sched.Start(ctx, coord); err != nil {
		logger.Fatal().Err(err).Str("event", "scheduler.start_failed").Msg("failed to start scene scheduler")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Gateway:      gateway,
		Scheduler:    sched,
		WakeUp:       wakeUp,
		Serial:       serial,
		Scenes:       scenes,
		Config:       cfgMgr,
		Materializer: sched,
		StartedAt:    time.Now(),
	})

	listenAddr := config.ParseString("LISTEN_ADDR", ":8080")
	srv := &http.Server{Addr: listenAddr, Handler: router}
	coord.RegisterHook("http_server", func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	})

	coord.Go(func() {
		logger.Info().Str("event", "http.listening").Str("addr", listenAddr).Msg("HTTP surface listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("event", "http.serve_failed").Msg("HTTP server stopped unexpectedly")
		}
	})

	metricsAddr := config.ParseString("METRICS_ADDR", ":9090")
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	coord.RegisterHook("metrics_server", func(ctx context.Context) error {
		return metricsSrv.Shutdown(ctx)
	})
	coord.Go(func() {
		logger.Info().Str("event", "metrics.listening").Str("addr", metricsAddr).Msg("metrics endpoint listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("event", "metrics.serve_failed").Msg("metrics server stopped unexpectedly")
		}
	})

	<-ctx.Done()
	logger.Info().Str("event", "shutdown.begin").Msg("signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := coord.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.failed").Msg("graceful shutdown did not complete cleanly")
		os.Exit(1)
	}

	logger.Info().Str("event", "shutdown.complete").Msg("shadecored exiting")
}
