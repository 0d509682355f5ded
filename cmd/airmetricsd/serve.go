package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"airmetrics/internal/cache"
	"airmetrics/internal/config"
	"airmetrics/internal/httpapi"
	"airmetrics/internal/hub"
	"airmetrics/internal/logging"
	"airmetrics/internal/mqttbridge"
	"airmetrics/internal/pipeline"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	addr        string
	dbDriver    string
	dbPath      string
	corsOrigins string
}

func newServeCmd(rf *rootFlags, lookup config.LookupFunc) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the samplers and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rf, lookup)
			if err != nil {
				return err
			}
			sf.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config:\n%w", err)
			}
			log, closer := logging.New(logOptions(cfg.Log))
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sf.addr, "addr", "", "HTTP listen address, e.g. :8000 (overrides config)")
	f.StringVar(&sf.dbDriver, "db-driver", "", "Store backend: sqlite|postgres|memory (overrides config)")
	f.StringVar(&sf.dbPath, "db-path", "", "SQLite database file (overrides config)")
	f.StringVar(&sf.corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")
	return cmd
}

func (sf *serveFlags) apply(cfg *config.Config) {
	if sf.addr != "" {
		cfg.Addr = sf.addr
	}
	if sf.dbDriver != "" {
		cfg.Database.Driver = sf.dbDriver
	}
	if sf.dbPath != "" {
		cfg.Database.Path = sf.dbPath
	}
	if origins := splitCSV(sf.corsOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = origins
	}
}

func logOptions(c config.LogConfig) logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// serve runs until ctx is done, then shuts everything down in order: HTTP
// server, pipeline (final flush included), mirrors. When ready is non-nil the
// bound listener address is sent on it once the server accepts connections.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, ready chan<- net.Addr) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	h := hub.New(cfg.Stream.SubscriberQueue)
	pcfg := pipelineConfig(cfg, buildSensors(cfg, log))
	pcfg.Store = st
	pcfg.Hub = h
	pcfg.Logger = log
	p, err := pipeline.New(pcfg)
	if err != nil {
		st.Close()
		return err
	}

	// mirrors run until mirrorCtx is canceled after the pipeline stopped
	mirrorCtx, stopMirrors := context.WithCancel(context.WithoutCancel(ctx))
	var mirrors sync.WaitGroup
	defer func() {
		stopMirrors()
		mirrors.Wait()
	}()

	apiOpts := httpapi.Options{
		Logger:      log.With().Str("component", "http").Logger(),
		BaseContext: ctx,
		Keepalive:   cfg.Stream.Keepalive(),
		CORS:        httpapi.CORSOptions{Enabled: cfg.CORS.Enabled, AllowedOrigins: cfg.CORS.AllowedOrigins},
	}

	if cfg.Redis.Enabled {
		lc := cache.New(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL(),
		})
		defer lc.Close()
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := lc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, mirror writes will fail until it is back")
		}
		cancel()
		sub := h.Subscribe()
		mirrors.Add(1)
		go func() {
			defer mirrors.Done()
			defer h.Unsubscribe(sub)
			cache.Mirror(mirrorCtx, sub, lc, 0, log.With().Str("component", "cache").Logger())
		}()
		apiOpts.LatestFallback = lc
	}

	if cfg.MQTT.Enabled {
		mlog := log.With().Str("component", "mqtt").Logger()
		b, err := mqttbridge.Connect(ctx, mqttbridge.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
			Retain:      cfg.MQTT.Retain,
		}, mlog)
		if err != nil {
			mlog.Warn().Err(err).Msg("mqtt bridge disabled")
		} else {
			defer b.Close()
			sub := h.Subscribe()
			mirrors.Add(1)
			go func() {
				defer mirrors.Done()
				defer h.Unsubscribe(sub)
				b.Run(mirrorCtx, sub)
			}()
		}
	}

	if err := p.Start(ctx); err != nil {
		p.Shutdown(context.Background())
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		p.Shutdown(context.Background())
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(p, apiOpts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Int("sensors", len(pcfg.Sensors)).Str("store", cfg.Database.Driver).Msg("airmetrics listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	if ready != nil {
		ready <- ln.Addr()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	if err := shutdown(log, srv, p, shutdownTimeout); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown drains srv and then p, each under its own timeout. Only the
// pipeline error is returned.
func shutdown(log zerolog.Logger, srv, p shutdowner, timeout time.Duration) error {
	hctx, hcancel := context.WithTimeout(context.Background(), timeout)
	defer hcancel()
	if err := srv.Shutdown(hctx); err != nil {
		log.Warn().Err(err).Msg("graceful http shutdown error")
	}

	pctx, pcancel := context.WithTimeout(context.Background(), timeout)
	defer pcancel()
	if err := p.Shutdown(pctx); err != nil {
		log.Error().Err(err).Msg("pipeline shutdown error")
		return err
	}
	return nil
}
