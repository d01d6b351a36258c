package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/model"
)

// Extractor executable constants
const (
	YtDlpCommand        = "yt-dlp"
	DefaultProbeTimeout = 60 * time.Second
)

// MediaInfo is the normalized result of probing a single media URL
type MediaInfo struct {
	ID           string
	Title        string
	Duration     float64 // seconds, 0 if unknown
	ThumbnailURL string
	Formats      []model.Format
}

// Prober fetches the format inventory of a single media URL
type Prober interface {
	Probe(ctx context.Context, url string) (*MediaInfo, error)
}

// YtDlp probes media URLs by invoking the yt-dlp executable in JSON mode
type YtDlp struct {
	path    string
	timeout time.Duration
	log     *zap.Logger
}

// NewYtDlp creates an extractor client. An empty path resolves the command
// through PATH.
func NewYtDlp(path string, log *zap.Logger) *YtDlp {
	if path == "" {
		path = YtDlpCommand
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &YtDlp{
		path:    path,
		timeout: DefaultProbeTimeout,
		log:     log,
	}
}

// SetTimeout sets the timeout for probe operations
func (y *YtDlp) SetTimeout(timeout time.Duration) {
	y.timeout = timeout
}

// rawInfo mirrors the subset of yt-dlp -J output the probe needs
type rawInfo struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	FPS            float64 `json:"fps"`
	VBR            float64 `json:"vbr"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	URL            string  `json:"url"`
	Protocol       string  `json:"protocol"`
	DynamicRange   string  `json:"dynamic_range"`
	ASR            int     `json:"asr"`
	AudioChannels  int     `json:"audio_channels"`
	FormatNote     string  `json:"format_note"`
}

// Probe fetches the metadata of a single media URL without downloading it
func (y *YtDlp) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("invalid media URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.path, "-J", "--no-playlist", url)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	output, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("extractor failed: %w: %s", err, lastLine(detail))
		}
		return nil, fmt.Errorf("extractor failed: %w", err)
	}

	var raw rawInfo
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extractor output: %w", err)
	}

	info := &MediaInfo{
		ID:           raw.ID,
		Title:        raw.Title,
		Duration:     raw.Duration,
		ThumbnailURL: raw.Thumbnail,
		Formats:      make([]model.Format, 0, len(raw.Formats)),
	}
	for _, rf := range raw.Formats {
		info.Formats = append(info.Formats, mapFormat(rf))
	}

	y.log.Debug("probe finished",
		zap.String("url", url),
		zap.Int("formats", len(info.Formats)),
		zap.Duration("took", time.Since(started)))

	return info, nil
}

// mapFormat converts one extractor format record into the internal model.
// yt-dlp reports bitrates in kbps and sometimes only an approximate filesize.
func mapFormat(rf rawFormat) model.Format {
	size := rf.Filesize
	if size == 0 {
		size = rf.FilesizeApprox
	}

	return model.Format{
		ID:            rf.FormatID,
		Extension:     rf.Ext,
		VideoCodec:    rf.VCodec,
		AudioCodec:    rf.ACodec,
		Height:        rf.Height,
		Width:         rf.Width,
		FrameRate:     rf.FPS,
		VideoBitrate:  rf.VBR,
		AudioBitrate:  rf.ABR,
		TotalBitrate:  rf.TBR,
		FileSize:      size,
		SourceURL:     rf.URL,
		Protocol:      rf.Protocol,
		DynamicRange:  rf.DynamicRange,
		SampleRate:    rf.ASR,
		AudioChannels: rf.AudioChannels,
		QualityNote:   rf.FormatNote,
	}
}

// lastLine returns the final non-empty line of multi-line tool output
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return s
}
