package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/epgcast/internal/db"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/server"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service",
	Long: `Start the HTTP service.

Endpoints:
  GET /playlist.m3u           M3U playlist of every guide channel
  GET /channel/{id}           live Matroska stream of one channel
  GET /api/channels           channel catalog as JSON
  GET /api/streams            streams currently being served
  GET /api/sessions[/{id}]    stream history (when the database is enabled)
  GET /api/health             health check
  GET /metrics                Prometheus metrics (when enabled)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().Bool("no-history", false, "do not record stream history")
	serveCmd.Flags().Bool("skip-ffmpeg-check", false, "start without verifying the ffmpeg binary and filler encoders")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.Database.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	if skip, _ := cmd.Flags().GetBool("skip-ffmpeg-check"); !skip {
		if err := streaming.CheckFFmpeg(cmd.Context(), cfg.StreamingConfig()); err != nil {
			return fmt.Errorf("ffmpeg check failed: %w", err)
		}
	}

	logger.Log.Info().
		Str("version", Version).
		Str("commit", Commit).
		Msg("epgcast starting")

	var database *db.DB
	if cfg.Database.Enabled {
		var err error
		database, err = openDatabase(cfg.Database.Path, cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Log.Error().Err(err).Msg("Failed to close database")
			}
		}()
	}

	srv := server.New(cfg, database)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func openDatabase(path, migrationsPath string) (*db.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := db.New(path)
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	if err := db.RunMigrations(sqlDB, migrationsPath); err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Log.Info().Str("path", path).Msg("Stream history database ready")
	return database, nil
}
