package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/sync/errgroup"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
	"github.com/hyprconnect/hyprconnect/internal/logging"
	"github.com/hyprconnect/hyprconnect/internal/metrics"
	"github.com/hyprconnect/hyprconnect/internal/notify"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Options configure the daemon.
type Options struct {
	ConfigPath string
	PollEvery  int    // seconds; zero uses the config value
	LogLevel   string // empty uses the config value
	SocketPath string // empty uses config.SocketPath()
	LogFile    string // empty uses the config value
	LogOutput  io.Writer
}

// Run boots hyprconnectd and blocks until the context is cancelled or a
// component fails.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	socket := opts.SocketPath
	if socket == "" {
		socket = config.SocketPath()
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = io.MultiWriter(out, f)
	}

	log := logging.New(cfg.LogLevel, out)
	m := metrics.New()

	gateway := kdeconnect.New(kdeconnect.Options{ActionTimeout: cfg.ActionTimeout})
	defer gateway.Close()

	sink := notify.NewDesktopSink(nil)
	defer sink.Close()
	notifier := notify.New(cfg.NotificationsEnabled, sink, logging.Component(log, "notify"), m)

	store := state.NewStore(cfg.MissingThreshold)
	reconciler := NewReconciler(gateway, store, ReconcilerOptions{
		OnDiff:       func(ctx context.Context, d state.Diff) { notifier.Handle(ctx, d) },
		FetchTimeout: cfg.ReadTimeout,
		Log:          logging.Component(log, "reconciler"),
		Metrics:      m,
	})

	dispatcher := action.New(store, gateway, action.Options{
		DefaultDevice: cfg.DefaultDevice,
		Trigger:       reconciler,
		Clipboard:     clipboard.ReadAll,
		Log:           logging.Component(log, "action"),
		Metrics:       m,
		ActionTimeout: cfg.ActionTimeout,
	})

	server := ipc.NewServer(socket, store, dispatcher, ipc.Options{
		ReadTimeout: cfg.ReadTimeout,
		Log:         logging.Component(log, "ipc"),
		Metrics:     m,
	})

	log.Info().
		Str("socket", socket).
		Dur("poll_interval", cfg.PollInterval).
		Bool("notifications", cfg.NotificationsEnabled).
		Str("default_device", cfg.DefaultDevice).
		Str("log_file", cfg.LogFile).
		Msg("starting hyprconnectd")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reconciler.Run(ctx) })
	g.Go(func() error { return server.Serve(ctx) })
	if cfg.MetricsListen != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsListen, m) })
	}

	// Populate the cache before the first tick; the result is the
	// notification baseline.
	reconciler.Request(sourceStartup)
	StartPoller(ctx, reconciler, cfg.PollInterval)
	StartSignalListener(ctx, gateway, reconciler, logging.Component(log, "signals"))

	err = g.Wait()
	log.Info().Msg("hyprconnectd stopped")
	return err
}

// openLogFile opens path for appending, creating its directory. The file
// holds the same JSON lines as stderr; hyprconnectctl logs tails it.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
