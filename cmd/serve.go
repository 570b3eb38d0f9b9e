package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/api"
	"github.com/sells-group/road-crawl-cli/internal/monitoring"
)

const shutdownTimeout = 15 * time.Second

var (
	servePort  int
	serveCrawl bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the road scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		if serveCrawl {
			if err := cfg.Validate("crawl"); err != nil {
				return err
			}
		}

		e, err := initEnv(ctx, serveCrawl)
		if err != nil {
			return err
		}
		defer e.Close()

		checker := monitoring.NewChecker(
			monitoring.NewCollector(e.Store, e.Costs, cfg.RateLimit.DailyLimit),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewRouter(e.Service, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("crawl_enabled", serveCrawl),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveCrawl, "crawl", false, "enable POST /v1/roads/{id}/crawl (requires google.key)")
	rootCmd.AddCommand(serveCmd)
}
