package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/api"
	"github.com/khanhnv2901/domain-insight/internal/application"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// responseSlack is added to the longest source timeout so a slow analysis
// can still be written before the server gives up on the connection.
const responseSlack = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config
		logger := appCtx.Logger

		container, err := application.NewContainer(cfg.applicationConfig(), logger)
		if err != nil {
			return err
		}
		defer container.Close()

		server := api.NewServer(api.Config{
			Analyzer:    container.Orchestrator,
			Health:      container.Orchestrator,
			Logger:      logger.Named("api"),
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.longestSourceTimeout() + responseSlack,
			IdleTimeout:       120 * time.Second,
		}

		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s API server listening on %s\n", colorInfo("→"), ln.Addr())
		fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))

		return runServer(ctx, out, httpServer, ln, cfg.Server.ShutdownTimeout, logger)
	},
}

// runServer serves on ln until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, out io.Writer, httpServer *http.Server, ln net.Listener, shutdownTimeout time.Duration, logger *zap.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		serverErrors <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintf(out, "\n%s Shutting down...\n", colorInfo("→"))
	logger.Info("shutdown initiated", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		if closeErr := httpServer.Close(); closeErr != nil {
			return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
		}
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}

	fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
	return nil
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Server.Addr, "addr", cliConfig.Server.Addr, "Address for the API server")
	flags.DurationVar(&cliConfig.Server.ShutdownTimeout, "shutdown-timeout", cliConfig.Server.ShutdownTimeout, "Graceful shutdown timeout")
	flags.StringSliceVar(&cliConfig.Server.CORSOrigins, "cors-origins", cliConfig.Server.CORSOrigins, "Allowed CORS origins (empty = allow all)")
	flags.IntVar(&cliConfig.Server.RateLimit, "rate-limit", cliConfig.Server.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&cliConfig.Server.RateBurst, "rate-burst", cliConfig.Server.RateBurst, "Rate limit burst size")
}
