package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"codebase-consultant/internal/client"
	"codebase-consultant/internal/config"
	"codebase-consultant/internal/consult"
	"codebase-consultant/internal/keypool"
	"codebase-consultant/internal/retry"
	"codebase-consultant/internal/server"
	"codebase-consultant/internal/storage"
	"codebase-consultant/internal/viewer"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var viewerPathFlag string

	rootCmd := &cobra.Command{
		Use:           "codebase-consultant",
		Short:         "MCP server answering codebase questions through two-phase Gemini consultations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(viewerPathFlag)
		},
	}

	rootCmd.Flags().StringVar(&viewerPathFlag, "codebase-viewer-path", "",
		"Path to the codebase_viewer binary (overrides CODEBASE_VIEWER_PATH)")

	return rootCmd
}

func run(viewerPathFlag string) error {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.LoadConfig()
	if viewerPathFlag != "" {
		cfg.Report.ViewerPath = viewerPathFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Setup structured logging with configurable level, format, and output
	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	pool, err := keypool.New(cfg.LLM.APIKeys)
	if err != nil {
		return fmt.Errorf("create key pool (set GEMINI_API_KEYS or GEMINI_API_KEY): %w", err)
	}
	slog.Info("key pool ready", "keys", pool.Size())

	provider, err := client.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}
	slog.Info("llm provider ready", "provider", provider.Name(), "model", cfg.LLM.Model)

	transport := retry.NewTransport(provider)
	orchestrator := consult.New(pool, transport)
	reports := viewer.NewRunner(cfg.Report)

	// Initialize storage
	var store storage.Repository
	if cfg.Storage.DSN != "" {
		switch cfg.Storage.Driver {
		case "sqlite":
			store, err = storage.NewSQLiteRepository(cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer store.Close()
			slog.Info("storage ready", "dsn", cfg.Storage.DSN)
		default:
			slog.Warn("unknown storage driver, persistence disabled", "driver", cfg.Storage.Driver)
		}
	}

	srv := server.New(cfg, orchestrator, reports, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Server.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:    cfg.Server.MetricsAddr,
			Handler: metricsMux(),
		}
		g.Go(func() error {
			slog.Info("metrics server starting", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Prometheus Metrics Endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Liveness probe (Kubernetes: startup/liveness)
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness probe (Kubernetes: readiness)
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	return mux
}

// setupLogger creates a logger based on configuration. The default output is
// stderr: stdout belongs to the MCP protocol stream and must stay clean.
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer
	outputs := strings.Split(cfg.Log.Output, ",")

	for _, output := range outputs {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr", "stdout":
			// "stdout" is remapped: the protocol stream owns stdout.
			w = os.Stderr
		default:
			// Use lumberjack for log rotation
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	return slog.New(handler), cleanup
}
