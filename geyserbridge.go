package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/maxpert/geyserbridge/admin"
	"github.com/maxpert/geyserbridge/cfg"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/ingest"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/plugin"
	"github.com/maxpert/geyserbridge/telemetry"

	_ "github.com/maxpert/geyserbridge/publisher/sink"
	_ "github.com/maxpert/geyserbridge/publisher/transformer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("geyserbridge - Geyser transaction filter and publish bridge")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()

	hub := notify.NewHub()
	defer hub.Close()

	config := plugin.ConfigFromGlobal()
	config.Hub = hub
	p, err := plugin.Activate(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to activate plugin")
		return
	}
	defer p.Close()

	collector := telemetry.NewMetricsCollector(hub, 10*time.Second)
	collector.Start()
	defer collector.Stop()

	var adminServer *http.Server
	if cfg.Config.Admin.Enabled {
		adminServer = startAdminServer(p)
	}

	source, err := ingest.NewSource(cfg.Config.Ingest)
	if err != nil {
		abort(p, err, "Failed to create ingest source")
		return
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	log.Info().
		Uint64("instance_id", cfg.Config.InstanceID).
		Str("ingest", cfg.Config.Ingest.Type).
		Int("workers", cfg.Config.Ingest.Workers).
		Msg("geyserbridge is operational")

	ingestor := ingest.NewIngestor(source, p, cfg.Config.Ingest.Workers, cfg.Config.Ingest.BufferSize)
	runErr := ingestor.Run(ctx)

	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		adminServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if runErr != nil {
		if errors.Is(runErr, geyser.ErrProtocolFault) {
			abort(p, runErr, "Host sent an unsupported notification version")
			return
		}
		abort(p, runErr, "Ingest stopped")
	}
}

// fatal exits the process; deferred calls do not run
var fatal = func(err error, msg string) {
	log.Fatal().Err(err).Msg(msg)
}

// abort unloads the plugin, closing the bus connection, then exits
func abort(p io.Closer, err error, msg string) {
	if cerr := p.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close plugin")
	}
	fatal(err, msg)
}

func startAdminServer(p *plugin.Plugin) *http.Server {
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, admin.NewAdminHandlers(p, cfg.Config.InstanceID), cfg.Config.Admin.Token)
	if handler := telemetry.GetMetricsHandler(); handler != nil {
		mux.Handle("/metrics", handler)
	}

	addr := net.JoinHostPort(cfg.Config.Admin.BindAddress, strconv.Itoa(cfg.Config.Admin.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Admin HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Admin HTTP server failed")
		}
	}()

	return server
}
