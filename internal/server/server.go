// Package server wires the site, ops endpoints and background workers
// together and manages their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Gakyra/w-chat/internal/assets"
	"github.com/Gakyra/w-chat/internal/livereload"
	"github.com/Gakyra/w-chat/internal/metrics"
	"github.com/Gakyra/w-chat/internal/probe"
	"github.com/Gakyra/w-chat/internal/ratelimit"
	"github.com/Gakyra/w-chat/internal/site"
	"github.com/Gakyra/w-chat/internal/watch"
	"github.com/Gakyra/w-chat/internal/web"
	"github.com/Gakyra/w-chat/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

const probeTimeout = 10 * time.Second

// Server owns the public and ops listeners.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	probe *probe.Manager
	hub   *livereload.Hub

	public *http.Server
	admin  *http.Server

	publicListener net.Listener
	adminListener  net.Listener
}

// NewProber checks the two page files and the static directory of root.
func NewProber(root fs.FS, staticDir string) *probe.FSProber {
	return probe.NewFSProber(root, []string{site.IndexPage, site.EditVideoPage}, []string{staticDir})
}

// New opens the asset source and builds both handlers. Missing site files
// are logged, not fatal: affected requests fail individually.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	root, err := assets.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	siteHandler, err := site.New(root, cfg.Site.StaticDir, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	probeManager := probe.NewManager(NewProber(root, cfg.Site.StaticDir), cfg.Probe.RefreshInterval)
	probeManager.OnRefresh(func(err error) {
		m.ProbeRefreshes.Inc()
		if err != nil {
			m.ProbeErrors.Inc()
		}
	})

	initialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	if err := probeManager.Refresh(initialCtx); err != nil {
		logger.Warn("site is not ready", "error", err)
	} else {
		logger.Info("site files found", "root", siteLocation(cfg))
	}
	cancel()

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		probe:   probeManager,
	}

	var liveReload *livereload.Handler
	if cfg.LiveReload.Enabled {
		s.hub = livereload.NewHub(logger)
		s.hub.OnClientCount(func(n int) {
			m.LiveReloadClients.Set(float64(n))
		})
		liveReload = livereload.NewHandler(s.hub, cfg.LiveReload.AllowedOrigins, logger)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	s.public = &http.Server{
		Handler:           web.NewRouter(siteHandler, liveReload, limiter, m, logger).Setup(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	if cfg.Admin.Enabled {
		s.admin = &http.Server{
			Handler:           web.NewOpsHandler(registry, probeManager),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		}
	}

	return s, nil
}

// Listen binds the configured ports. Only the public port is required; a
// failed ops bind is logged and the ops endpoints stay unavailable.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", ":"+s.cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.cfg.ServerPort, err)
	}
	s.publicListener = ln

	if s.admin != nil {
		adminLn, err := net.Listen("tcp", ":"+s.cfg.Admin.Port)
		if err != nil {
			s.logger.Warn("ops server disabled", "port", s.cfg.Admin.Port, "error", err)
			return nil
		}
		s.adminListener = adminLn
	}
	return nil
}

// PublicAddr is the bound public address; nil before Listen.
func (s *Server) PublicAddr() net.Addr {
	if s.publicListener == nil {
		return nil
	}
	return s.publicListener.Addr()
}

// AdminAddr is the bound ops address; nil when the ops listener is disabled.
func (s *Server) AdminAddr() net.Addr {
	if s.adminListener == nil {
		return nil
	}
	return s.adminListener.Addr()
}

// Run serves until ctx is done or a listener fails, then shuts down
// gracefully. The startup line is written to out once serving begins.
func (s *Server) Run(ctx context.Context, out io.Writer) error {
	if s.publicListener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.probe.Start(ctx, s.logger)
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	if s.cfg.Watch.Enabled && s.cfg.Site.AssetSource == config.AssetSourceDir {
		watcher, err := s.startWatcher(ctx)
		if err != nil {
			s.logger.Warn("file watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	serveErr := make(chan error, 2)
	go func() {
		if err := s.public.Serve(s.publicListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("public server: %w", err)
		}
	}()
	if s.adminListener != nil {
		go func() {
			s.logger.Info("ops server started", "addr", s.adminListener.Addr().String())
			if err := s.admin.Serve(s.adminListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("ops server: %w", err)
			}
		}()
	}

	fmt.Fprintf(out, "w-chat listening at http://localhost:%d\n", port(s.publicListener.Addr()))

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case runErr = <-serveErr:
		s.logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := s.public.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shutdown public server", "error", err)
	}
	if s.adminListener != nil {
		if err := s.admin.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown ops server", "error", err)
		}
	}

	return runErr
}

func (s *Server) startWatcher(ctx context.Context) (*watch.Watcher, error) {
	watcher, err := watch.NewWatcher(s.logger)
	if err != nil {
		return nil, err
	}

	err = watcher.Watch(s.cfg.Site.Root, func(relPath string) {
		s.metrics.AssetChanges.Inc()
		s.logger.Debug("site file changed", "path", relPath)

		refreshCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		if err := s.probe.Refresh(refreshCtx); err != nil {
			s.logger.Warn("site is not ready", "error", err)
		}
		cancel()

		if s.hub != nil {
			s.hub.Reload(relPath)
		}
	})
	if err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	return watcher, nil
}

func siteLocation(cfg *config.Config) string {
	if cfg.Site.AssetSource == config.AssetSourceS3 {
		return "s3://" + cfg.S3.Bucket + "/" + cfg.S3.KeyPrefix
	}
	return cfg.Site.Root
}

func port(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
