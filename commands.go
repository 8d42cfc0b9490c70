package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apihttp "campus-energy/internal/api/http"
	"campus-energy/internal/auth"
	"campus-energy/internal/bloom"
	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/reports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily fuel-cell fetch",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.logger.Info("database schema is up to date", zap.String("driver", a.cfg.Database.Driver))
		return nil
	},
}

var importKind string

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a daily-xlsx or hourly-csv export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch yesterday's fuel-cell data once",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	serveCmd.Flags().BoolVar(&memoryMode, "memory", false, "keep data in memory instead of the configured database")
	importCmd.Flags().StringVar(&importKind, "kind", "", "source kind: daily-xlsx or hourly-csv")
	_ = importCmd.MarkFlagRequired("kind")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, memoryMode)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	sources, err := reports.NewSourcesStore(cfg.Ingest.SourcesDir, a.logger)
	if err != nil {
		return err
	}
	var authMiddleware *auth.Middleware
	if cfg.Auth.Enabled {
		authMiddleware = auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), auth.NewDefaultPolicy([]string{"/healthz"}), a.logger)
	}

	handler, err := apihttp.NewRouter(apihttp.Deps{
		Analytics:      a.engine,
		Freshness:      a.freshness,
		Importer:       a.importer,
		Sources:        sources,
		Auth:           authMiddleware,
		Logger:         a.logger,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	if cfg.Bloom.Enabled {
		job, err := a.fetchJob()
		if err != nil {
			return err
		}
		go bloom.NewScheduler(job, cfg.Bloom.DailyAt, a.logger).Start(ctx)
		a.logger.Info("bloom scheduler started", zap.String("daily_at", cfg.Bloom.DailyAt))
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, err := energy.ParseSourceKind(importKind)
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.importer.Import(cmd.Context(), buf, kind)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.fetchJob()
	if err != nil {
		return err
	}
	result, err := job.Run(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
