package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/handnav/internal/adapters/broadcast"
	"github.com/okian/handnav/internal/adapters/camera"
	"github.com/okian/handnav/internal/adapters/host"
	"github.com/okian/handnav/internal/adapters/http/api"
	"github.com/okian/handnav/internal/adapters/http/site"
	"github.com/okian/handnav/internal/adapters/http/swagger"
	"github.com/okian/handnav/internal/adapters/http/ws"
	"github.com/okian/handnav/internal/adapters/repository"
	service "github.com/okian/handnav/internal/app"
	"github.com/okian/handnav/internal/config"
	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/recognition"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Bootstrap logger so config errors have somewhere to go.
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	if err := setupLogging(cfg); err != nil {
		_, _ = os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// setupLogging applies the configured format, file and level.
func setupLogging(cfg *config.Config) error {
	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	if err := logger.Init(opts...); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	if cfg.Autostart {
		if err := a.svc.Start(ctx); err != nil {
			log.Warn(ctx, "autostart failed", logger.Error(err), logger.String("message", a.svc.Snapshot().Message))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	// Hijacked WebSocket connections are not tracked by Shutdown.
	_ = a.bridge.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// application is the wired process.
type application struct {
	svc       *service.Service
	browser   *host.Browser
	transport broadcast.Transport
	bridge    *ws.Bridge
	store     *repository.RingStore
	mux       *http.ServeMux
	release   func()
}

// build wires every component from cfg without listening.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logger.Get()
	setupMetrics(cfg)

	source, err := recognition.New(recognition.Settings{
		Kind:       cfg.Source,
		Interval:   cfg.TickInterval(),
		Seed:       cfg.RandomSeed,
		ScriptPath: cfg.ScriptPath,
	})
	if err != nil {
		return nil, fmt.Errorf("recognition source: %w", err)
	}

	transport, release := newTransport(ctx, cfg, log)
	channel, err := transport.Open(ctx, cfg.BroadcastChannel)
	if err != nil {
		_ = transport.Close()
		release()
		return nil, fmt.Errorf("open broadcast channel: %w", err)
	}

	browser := host.NewBrowser(host.WithFullscreenSupported(cfg.FullscreenSupported))
	h := browser.Host()
	registry := actions.NewRegistry(h, actions.Probe(h),
		actions.WithScrollDelta(cfg.ScrollDelta),
		actions.WithLogger(logger.Named("actions")))

	store := repository.NewRingStore(ctx,
		repository.WithCapacity(cfg.HistorySize),
		repository.WithMetricsUpdateInterval(metrics.RefreshInterval()),
	)

	svc := service.New(source, registry, channel,
		service.WithLogger(logger.Named("session")),
		service.WithCamera(camera.NewDevice(
			camera.WithDenied(cfg.CameraDenied),
			camera.WithUnavailable(cfg.CameraUnavailable),
		)),
		service.WithCameraConstraints(camera.Constraints{Width: cfg.CameraWidth, Height: cfg.CameraHeight}),
		service.WithThreshold(cfg.Threshold),
		service.WithHistory(store),
		service.WithRemoteActions(cfg.RemoteActions),
	)

	bridge := ws.NewBridge(transport, cfg.BroadcastChannel,
		ws.WithLogger(logger.Named("ws")),
		ws.WithPublishLimit(cfg.WSPublishRate, cfg.WSPublishBurst))

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		api.WithHostView(browser),
	).Register(ctx, mux)
	bridge.Register(ctx, mux)

	log.Info(ctx, "application wired",
		logger.String("source", source.Name()),
		logger.String("transport", transport.Name()),
		logger.String("channel", cfg.BroadcastChannel),
		logger.Float64("threshold", cfg.Threshold))

	return &application{
		svc:       svc,
		browser:   browser,
		transport: transport,
		bridge:    bridge,
		store:     store,
		mux:       mux,
		release:   release,
	}, nil
}

// close releases components in reverse order of build.
func (a *application) close() {
	_ = a.bridge.Close()
	_ = a.svc.Close()
	_ = a.store.Close()
	_ = a.transport.Close()
	a.release()
}

// newTransport picks the broadcast transport. An unreachable Redis degrades
// to a single-tab session instead of failing startup. release frees what the
// transport does not own.
func newTransport(ctx context.Context, cfg *config.Config, log logger.Logger) (t broadcast.Transport, release func()) {
	opts := []broadcast.Option{
		broadcast.WithMailboxSize(cfg.MailboxSize),
		broadcast.WithLogger(logger.Named("broadcast")),
	}
	release = func() {}
	switch cfg.BroadcastTransport {
	case broadcast.TransportRedis:
		client := broadcast.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		release = func() { _ = client.Close() }
		t = broadcast.NewRedisTransport(client, append(opts, broadcast.WithPrefix(cfg.RedisPrefix))...)
	case broadcast.TransportNone:
		t = broadcast.NewNoopTransport()
	default:
		t = broadcast.NewMemoryTransport(opts...)
	}
	return broadcast.Resolve(ctx, t, log), release
}

// setupMetrics rebuilds the process-wide metrics on a fresh registry. It runs
// before any handler captures the registry.
func setupMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	)
}

// startSystemMetricsUpdater samples system metrics every interval until ctx ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
