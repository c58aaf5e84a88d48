// Command mcws talks to a JRiver Media Center server over MCWS.
//
// Usage:
//
//	# Access key from the environment
//	MCWS_ACCESS_KEY=ABC123 go run ./cmd/mcws zones
//
//	# Named profile from a YAML file, persisted resolution state
//	MCWS_CONFIG=~/.config/mcws.yaml MCWS_PROFILE=office MCWS_CACHE_PATH=./data/keys.db \
//		go run ./cmd/mcws -zone Kitchen info
//
// Commands: alive, resolve, fields, zones, info, search QUERY, libraries,
// watch, cache [forget KEY].
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/strefethen/mcws-go/internal/config"
	"github.com/strefethen/mcws-go/internal/logger"
	"github.com/strefethen/mcws-go/pkg/mcws"
	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
	"github.com/strefethen/mcws-go/pkg/mcws/keycache"
	"github.com/strefethen/mcws-go/pkg/mcws/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mcws: %v\n", err)
		os.Exit(1)
	}
}

// app carries everything a command needs.
type app struct {
	cfg    config.Config
	server *mcws.Server
	store  *keycache.Store
	zone   *mcws.Zone
	hidden bool
	out    io.Writer
	log    zerolog.Logger
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mcws", flag.ContinueOnError)
	fs.SetOutput(out)
	zoneName := fs.String("zone", "", "target zone by name (default: current zone)")
	zoneIndex := fs.Int("zone-index", -1, "target zone by index")
	hidden := fs.Bool("hidden", false, "include hidden zones")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	root, err := logger.New(logger.Config{Level: cfg.LogLevel, Debug: cfg.LogDebug, Output: cfg.LogOutput})
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}

	a := &app{cfg: cfg, hidden: *hidden, out: out, log: logger.WithComponent(root, "cli")}
	switch {
	case *zoneName != "":
		a.zone = mcws.ZoneByName(*zoneName)
	case *zoneIndex >= 0:
		a.zone = mcws.ZoneByIndex(*zoneIndex)
	}

	opts := append(cfg.EndpointOptions(), endpoint.WithLogger(root))

	if cfg.CachePath != "" {
		pair, err := keycache.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("cache error: %w", err)
		}
		defer pair.Close()
		a.store = keycache.NewStore(pair)
		opts = append(opts, endpoint.WithStateStore(a.store))
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, endpoint.WithObserver(metrics.NewCollector(reg)))

		srv := newMetricsServer(cfg.MetricsAddr, reg)
		go func() {
			a.log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("metrics shutdown error")
			}
		}()
	}

	a.server = mcws.New(cfg.AccessKey, cfg.Username, cfg.Password, opts...)

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
	return cmd(ctx, a, fs.Args()[1:])
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
