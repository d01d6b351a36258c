package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytget/fetchmux/internal/api"
	"github.com/ytget/fetchmux/internal/config"
	"github.com/ytget/fetchmux/internal/events"
	"github.com/ytget/fetchmux/internal/extract"
	"github.com/ytget/fetchmux/internal/platform"
	"github.com/ytget/fetchmux/internal/queue"
	"github.com/ytget/fetchmux/internal/transcode"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [url]",
		Short: "Download one URL (or playlist) and wait for completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().String("kind", "", "Request kind: combined, video+audio-merge, muted-video, audio-only, image")
	cmd.Flags().String("format", "", "Explicit format id")
	cmd.Flags().Int("height", 0, "Maximum video height (e.g. 720)")
	cmd.Flags().String("container", "", "Target container (e.g. mp4, webm, m4a)")

	return cmd
}

func runGet(ctx context.Context, cmd *cobra.Command, url string) error {
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
		MaxConcurrent: settings.MaxParallel,
		Cooldown:      settings.Cooldown,
		OutputDir:     settings.DownloadDir,
	}, runner, hub, log)

	service := api.NewService(
		extract.NewYtDlp(settings.YtDlpPath, log),
		extract.NewPlaylistService(log),
		manager,
		settings.QualityPreset,
		log,
	)

	kind, _ := cmd.Flags().GetString("kind")
	formatID, _ := cmd.Flags().GetString("format")
	height, _ := cmd.Flags().GetInt("height")
	container, _ := cmd.Flags().GetString("container")

	// Subscribe before submitting so no terminal event can slip past.
	sub := hub.Subscribe(0)
	defer sub.Unsubscribe()

	resp, err := service.Submit(ctx, api.SubmitRequest{
		URL:       url,
		Kind:      kind,
		FormatID:  formatID,
		MaxHeight: height,
		Container: container,
	})
	if err != nil {
		return err
	}
	for _, entryErr := range resp.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", entryErr.URL, entryErr.Error)
	}

	pending := make(map[string]bool, len(resp.JobIDs))
	for _, id := range resp.JobIDs {
		pending[id] = true
	}

	failed := 0
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			for id := range pending {
				manager.Cancel(id)
			}
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return fmt.Errorf("event stream closed unexpectedly")
			}
			if !pending[ev.JobID] {
				continue
			}
			switch ev.Type {
			case events.TypeProgress:
				fmt.Fprintf(cmd.OutOrStdout(), "\r%s %5.1f%% %s", ev.JobID, ev.Progress.Percent, ev.Progress.Speed)
			case events.TypeCompleted:
				delete(pending, ev.JobID)
				if job, ok := manager.GetJob(ev.JobID); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "\rdone: %s\n", job.OutputPath)
					if job.Warning != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", job.Warning)
					}
				}
			case events.TypeError:
				delete(pending, ev.JobID)
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "\rfailed: %s\n", ev.Message)
			case events.TypeCancelled:
				delete(pending, ev.JobID)
				failed++
			}
		}
	}

	if failed > 0 {
		return &ExitError{Code: ExitDownloadError, Err: fmt.Errorf("%d download(s) failed", failed)}
	}
	return nil
}
