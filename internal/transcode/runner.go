package transcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/model"
	"github.com/ytget/fetchmux/internal/queue"
)

// Executable and ffprobe constants
const (
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"

	// Number of trailing non-progress stderr lines kept for error reporting
	StderrTailLines = 30
)

// Config holds the external executable paths and passthrough options
type Config struct {
	FFmpegPath  string
	FFprobePath string
	ExtraArgs   []string // appended after the generated options
}

// FFmpeg runs one ffmpeg process per job and reports progress through the
// callbacks supplied by the queue manager.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	extraArgs   []string
	log         *zap.Logger
}

// New creates an ffmpeg runner. Empty paths fall back to the bare command
// names resolved through PATH.
func New(cfg Config, log *zap.Logger) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = FFmpegCommand
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = FFprobeCommand
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpeg{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		extraArgs:   cfg.ExtraArgs,
		log:         log,
	}
}

// processHandle exposes best-effort termination of a spawned ffmpeg process
type processHandle struct {
	proc *os.Process
}

func (h *processHandle) Kill() error {
	return h.proc.Kill()
}

// Run executes ffmpeg for the resolved request and blocks until the process
// exits. The handle is attached right after spawn so cancellation can reach
// the process; progress snapshots flow through onProgress as they arrive.
func (f *FFmpeg) Run(ctx context.Context, req model.ResolvedRequest, outputPath string, attach func(model.ProcessHandle), onProgress func(model.Progress)) (queue.RunResult, error) {
	duration := req.Duration
	if duration <= 0 && req.Kind != model.KindImage {
		probed, err := f.probeDuration(ctx, req.SourceURL)
		if err != nil {
			f.log.Debug("duration probe failed, progress percent unavailable",
				zap.String("source", req.SourceURL),
				zap.Error(err))
		} else {
			duration = probed
		}
	}

	args := BuildArgs(req, outputPath, f.extraArgs)
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return queue.RunResult{}, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return queue.RunResult{}, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	attach(&processHandle{proc: cmd.Process})

	tail := f.monitorProgress(stderr, duration, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return queue.RunResult{}, ctxErr
		}
		if detail := strings.TrimSpace(strings.Join(tail, "\n")); detail != "" {
			return queue.RunResult{}, fmt.Errorf("ffmpeg: %w: %s", err, detail)
		}
		return queue.RunResult{}, fmt.Errorf("ffmpeg: %w", err)
	}

	return f.verifyOutput(outputPath), nil
}

// monitorProgress reads stderr until EOF, publishing merged snapshots on each
// progress block and collecting a tail of diagnostic lines for error text.
func (f *FFmpeg) monitorProgress(stderr io.Reader, duration float64, onProgress func(model.Progress)) []string {
	parser := newProgressParser(duration)
	var tail []string

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()

		if snapshot, publish := parser.ParseLine(line); publish {
			if onProgress != nil {
				onProgress(snapshot)
			}
			continue
		}

		// Keep non key=value lines only, those carry the actual errors
		if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.Contains(trimmed, "=") {
			tail = append(tail, trimmed)
			if len(tail) > StderrTailLines {
				tail = tail[1:]
			}
		}
	}

	return tail
}

// verifyOutput stats the finished file. A missing or empty file demotes the
// result to completed-with-warning rather than an error.
func (f *FFmpeg) verifyOutput(outputPath string) queue.RunResult {
	info, err := os.Stat(outputPath)
	if err != nil {
		return queue.RunResult{Warning: fmt.Sprintf("output file missing: %s", outputPath)}
	}
	if info.Size() == 0 {
		return queue.RunResult{Warning: fmt.Sprintf("output file is empty: %s", outputPath)}
	}
	return queue.RunResult{SizeBytes: info.Size()}
}

// probeDuration asks ffprobe for the media duration in seconds
func (f *FFmpeg) probeDuration(ctx context.Context, source string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", FFprobeLogLevel,
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		source)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}
