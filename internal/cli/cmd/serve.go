package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytget/fetchmux/internal/api"
	"github.com/ytget/fetchmux/internal/config"
	"github.com/ytget/fetchmux/internal/events"
	"github.com/ytget/fetchmux/internal/extract"
	"github.com/ytget/fetchmux/internal/platform"
	"github.com/ytget/fetchmux/internal/queue"
	"github.com/ytget/fetchmux/internal/transcode"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue as an HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	settings := config.Load()

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := platform.CreateDirectoryIfNotExists(settings.DownloadDir); err != nil {
		return err
	}

	hub := events.NewHub(log)
	runner := transcode.New(transcode.Config{
		FFmpegPath:  settings.FFmpegPath,
		FFprobePath: settings.FFprobePath,
		ExtraArgs:   settings.FFmpegExtraArgs,
	}, log)
	manager := queue.NewManager(queue.Config{
		MaxConcurrent:   settings.MaxParallel,
		Cooldown:        settings.Cooldown,
		OutputDir:       settings.DownloadDir,
		MaxCompleted:    settings.MaxCompleted,
		CompletedMaxAge: settings.CompletedMaxAge,
	}, runner, hub, log)

	manager.StartSweeper()
	defer manager.StopSweeper()

	service := api.NewService(
		extract.NewYtDlp(settings.YtDlpPath, log),
		extract.NewPlaylistService(log),
		manager,
		settings.QualityPreset,
		log,
	)
	server := api.NewServer(service, manager, hub, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(settings.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
