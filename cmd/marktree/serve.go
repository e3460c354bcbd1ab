package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/CageChen/marktree/internal/config"
	"github.com/CageChen/marktree/internal/handler"
	"github.com/CageChen/marktree/internal/launch"
	"github.com/CageChen/marktree/internal/library"
	"github.com/CageChen/marktree/internal/logging"
	"github.com/CageChen/marktree/internal/markdown"
	"github.com/CageChen/marktree/internal/metrics"
	"github.com/CageChen/marktree/internal/store"
	"github.com/CageChen/marktree/internal/watcher"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd builds the serve subcommand.
func NewServeCmd(flags *rootFlags) *cobra.Command {
	var (
		host string
		port int
		open bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document tree over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("open") {
				cfg.Open = open
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "interface to listen on (default localhost)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on")
	cmd.Flags().BoolVar(&open, "open", false, "open the browser once the server is up")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Must(cfg.Logging())
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	hub := handler.NewHub(m, logger)

	var st *store.Store
	if cfg.StatePath != "" {
		st = store.New(cfg.StatePath, logger)
	}
	lib, err := library.Open(ctx, library.Options{
		Locations: cfg.Sources,
		Scanner:   cfg.Scanner(logger),
		Store:     st,
		SortMode:  cfg.SortMode,
		QuickMove: cfg.QuickMove,
		Logger:    logger,
		Metrics:   m,
		Notifier:  hub,
		Opener:    launch.System{},
	})
	if err != nil {
		return err
	}
	defer lib.Close()

	logger.Info("marktree starting",
		zap.String("config", cfg.GetConfigFilePath()),
		zap.Int("sources", len(cfg.Sources)),
		zap.String("addr", cfg.Addr()),
	)
	for _, loc := range cfg.Sources {
		logger.Info("source",
			zap.String("name", loc.Name()),
			zap.String("path", loc.Path),
			zap.String("git_ref", loc.GitRef),
		)
	}

	if cfg.Watch {
		w, err := watcher.New(cfg.Sources, cfg.Scanner(logger), logger)
		if err != nil {
			logger.Warn("failed to create file watcher", zap.Error(err))
		} else {
			w.OnChange(lib.ApplyEvent)
			if err := w.Start(); err != nil {
				logger.Warn("failed to start file watcher", zap.Error(err))
			}
			defer func() { _ = w.Stop() }()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: localOrigin,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	handler.NewAPI(lib, markdown.NewRenderer(), hub, logger).Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	address := fmt.Sprintf("http://localhost:%d", cfg.Port)
	logger.Info("server listening", zap.String("url", address))
	if cfg.Open {
		if err := (launch.System{}).Open(address); err != nil {
			logger.Warn("cannot open browser", zap.Error(err))
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return lib.Save()
}

// localOrigin admits pages served from this machine on any port.
func localOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
