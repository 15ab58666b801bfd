package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seo-optimizer/seoengine/analyzer"
	"github.com/seo-optimizer/seoengine/logging"
	"github.com/seo-optimizer/seoengine/middleware"
	"github.com/seo-optimizer/seoengine/report"
	"github.com/seo-optimizer/seoengine/server"
	"github.com/seo-optimizer/seoengine/stats"
	"github.com/seo-optimizer/seoengine/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		counters, err := stats.NewStorage(cfg.DataDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := counters.Shutdown(); err != nil {
				logger.Error("failed to persist counters", zap.Error(err))
			}
		}()

		statistics, err := logging.NewStatistics(filepath.Join(cfg.DataDir, "statistics.json"), cfg.DevMode)
		if err != nil {
			logger.Warn("starting with empty statistics", zap.Error(err))
		}
		defer func() {
			if err := statistics.Save(); err != nil {
				logger.Error("failed to save statistics", zap.Error(err))
			}
		}()

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.StatsCleanupSchedule, func() {
			if dropped := counters.Cleanup(cfg.StatsRetainMonths); len(dropped) > 0 {
				logger.Info("dropped old monthly counters", zap.Strings("months", dropped))
			}
		}); err != nil {
			return fmt.Errorf("schedule stats cleanup %q: %w", cfg.StatsCleanupSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		auditor := analyzer.NewAuditor(counters,
			analyzer.WithTimeout(cfg.AuditTimeout),
			analyzer.WithCacheTTL(cfg.AuditCacheTTL),
			analyzer.WithLogger(logger),
		)

		srv := server.New(server.Options{
			Store:       db,
			Auditor:     auditor,
			Counters:    counters,
			Statistics:  statistics,
			RateLimiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
			Logger:      logger,
		})

		httpServer := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", zap.String("addr", "http://localhost:"+cfg.Port))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Score a profile JSON document",
	Long:  "Reads a page SEO profile from a file, or from stdin when the argument is \"-\" or omitted, and prints the analysis.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read profile: %w", err)
		}

		p, err := analyzer.DecodeProfile(data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), analyzer.Analyze(p))
	},
}

var auditKeyword string

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Fetch a live page and score it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auditor := analyzer.NewAuditor(nil,
			analyzer.WithTimeout(cfg.AuditTimeout),
			analyzer.WithLogger(logger),
		)
		rep, err := auditor.Audit(cmd.Context(), args[0], auditKeyword)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rep)
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored profile to an xlsx report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.All(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([]report.Row, 0, len(records))
		for _, rec := range records {
			rows = append(rows, report.NewRow(rec.Profile))
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := report.Write(f, rows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", exportOut), zap.Int("pages", len(rows)))
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditKeyword, "keyword", "k", "", "focus keyword to check placement and density for")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "seo-report.xlsx", "output file")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
