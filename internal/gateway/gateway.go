// Package gateway serves the crondeck HTTP API: job and environment
// management, schedule tools, backup history, Prometheus metrics and live
// job logs over WebSocket. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
	"github.com/flemzord/crondeck/internal/manager"
)

// BackupStore is the part of *backup.Store the API exposes.
type BackupStore interface {
	List(ctx context.Context, limit int) ([]backup.Backup, error)
	Get(ctx context.Context, id int64) (backup.Backup, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Compile-time interface check.
var _ BackupStore = (*backup.Store)(nil)

// Options configures a Gateway.
type Options struct {
	Config  Config
	Manager *manager.Manager

	// Backups may be nil when backups are disabled; the backup routes then
	// answer 404.
	Backups BackupStore

	Audit  *audit.Logger
	Logger *slog.Logger

	// Registry receives the HTTP metrics; Gatherer backs /metrics. Either
	// may be nil.
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer

	Version string
}

// Gateway is the HTTP server.
type Gateway struct {
	config    Config
	manager   *manager.Manager
	backups   BackupStore
	audit     *audit.Logger
	logger    *slog.Logger
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	version   string
	startedAt time.Time

	server *http.Server
}

// New creates a Gateway. Zero config values are replaced with defaults.
func New(opts Options) *Gateway {
	cfg := opts.Config
	cfg.Defaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		config:    cfg,
		manager:   opts.Manager,
		backups:   opts.Backups,
		audit:     opts.Audit,
		logger:    logger.With("component", "gateway"),
		gatherer:  opts.Gatherer,
		version:   opts.Version,
		startedAt: time.Now(),
	}
	if opts.Registry != nil {
		g.metrics = NewMetrics(opts.Registry)
	}
	return g
}

// Handler returns the routed handler. Exposed for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	if !g.config.Auth.IsConfigured() && !isLoopback(g.config.Bind) {
		g.logger.Warn("gateway has no authentication and is not bound to loopback", "addr", g.config.Bind)
	}

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Run starts the server and blocks until ctx is done, then shuts down.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return g.Stop(context.WithoutCancel(ctx))
}

func isLoopback(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
