package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/MeKo-Tech/cardscan/internal/server"
	"github.com/MeKo-Tech/cardscan/internal/version"
	"github.com/spf13/cobra"
)

const (
	rateLimitPruneInterval = 10 * time.Minute
	rateLimitIdleClient    = 24 * time.Hour
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for business card extraction",
	Long: `Start an HTTP server that accepts business card uploads, extracts the
contact details and stores the resulting records.

The server provides the following endpoints:
  POST /cards       - Upload a card (multipart field "card")
  GET  /cards       - List stored cards (limit, offset)
  GET  /cards/{id}  - Fetch one stored card
  POST /extract     - Extract from raw OCR fragments (JSON body)
  GET  /ws          - WebSocket for interactive extraction
  GET  /health      - Health check endpoint
  GET  /metrics     - Prometheus metrics

Examples:
  cardscan serve
  cardscan serve --port 8080
  cardscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	RunE: runServeCommand,
}

// applyServerFlags copies server flag overrides into cfg.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Server.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("upload-dir") {
		cfg.Upload.Dir, _ = cmd.Flags().GetString("upload-dir")
	}

	rl := &cfg.Server.RateLimit
	if cmd.Flags().Changed("rate-limit-enabled") {
		rl.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
	}
	if cmd.Flags().Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
	}
	if cmd.Flags().Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
	}
	if cmd.Flags().Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = cmd.Flags().GetInt("max-requests-per-day")
	}
	if cmd.Flags().Changed("max-data-per-day") {
		rl.MaxDataPerDayMB, _ = cmd.Flags().GetInt("max-data-per-day")
	}
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	applyOCRFlags(cmd, &cfg)
	applyServerFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps, err := buildRuntime(ctx, &cfg, true)
	if err != nil {
		return fmt.Errorf("failed to initialize card service: %w", err)
	}
	defer func() {
		slog.Info("Cleaning up server resources")
		if err := deps.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
	}()

	cardServer, err := server.NewServer(cfg.ToServerConfig(version.Version), deps.service)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	go cardServer.PruneRateLimits(ctx, rateLimitPruneInterval, rateLimitIdleClient)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           cardServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	go func() {
		slog.Info("Starting card server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"engine", deps.engine.Name(),
			"store", deps.store != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 10, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("upload-dir", "uploads", "directory for uploaded cards")
	// OCR flags
	serveCmd.Flags().String("engine", "", "OCR engine: tesseract, documentai, azure, fragments")
	serveCmd.Flags().String("language", "", "OCR language hint")
	serveCmd.Flags().Bool("preprocess", false, "enhance images before OCR")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int("max-data-per-day", 500, "maximum data processed per day per client (MB)")
}
