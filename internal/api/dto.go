package api

import (
	"time"

	"github.com/ytget/fetchmux/internal/model"
)

// SubmitRequest is the POST /jobs body. URL is mandatory; the rest narrows
// what gets downloaded. A playlist URL expands into one job per entry.
type SubmitRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind,omitempty"` // defaults to combined

	// Explicit format selection.
	FormatID      string `json:"format_id,omitempty"`
	VideoFormatID string `json:"video_format_id,omitempty"`
	AudioFormatID string `json:"audio_format_id,omitempty"`

	// Declarative selection.
	MaxHeight int    `json:"max_height,omitempty"`
	AudioTier string `json:"audio_tier,omitempty"`

	Container string `json:"container,omitempty"`
}

// SubmitResponse lists the admitted job ids. Failed playlist entries are
// reported per-entry without failing the whole submission.
type SubmitResponse struct {
	JobIDs []string     `json:"job_ids"`
	Errors []EntryError `json:"errors,omitempty"`
}

// EntryError describes one playlist entry that could not be admitted
type EntryError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// JobResponse is the wire form of a job snapshot
type JobResponse struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Title      string           `json:"title"`
	Kind       string           `json:"kind"`
	OutputPath string           `json:"output_path,omitempty"`
	Progress   ProgressResponse `json:"progress"`
	Error      string           `json:"error,omitempty"`
	Warning    string           `json:"warning,omitempty"`
	SizeBytes  int64            `json:"size_bytes,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// ProgressResponse is the wire form of a progress snapshot
type ProgressResponse struct {
	Percent    float64 `json:"percent"`
	ETA        string  `json:"eta"`
	Speed      string  `json:"speed,omitempty"`
	Bitrate    string  `json:"bitrate,omitempty"`
	OutTimeSec float64 `json:"out_time_sec,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClearQueueResponse reports how many queued jobs were evicted
type ClearQueueResponse struct {
	Evicted int `json:"evicted"`
}

func toJobResponse(j model.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Status:     j.Status.String(),
		Title:      j.GetDisplayTitle(),
		Kind:       string(j.Request.Kind),
		OutputPath: j.OutputPath,
		Error:      j.LastError,
		Warning:    j.Warning,
		SizeBytes:  j.SizeBytes,
		Progress: ProgressResponse{
			Percent:    j.Progress.Percent,
			ETA:        j.GetETAString(),
			Speed:      j.Progress.Speed,
			Bitrate:    j.Progress.Bitrate,
			OutTimeSec: j.Progress.OutTimeSec,
			SizeBytes:  j.Progress.SizeBytes,
		},
	}
	if !j.StartedAt.IsZero() {
		t := j.StartedAt
		resp.StartedAt = &t
	}
	if !j.FinishedAt.IsZero() {
		t := j.FinishedAt
		resp.FinishedAt = &t
	}
	return resp
}

func toJobResponses(jobs []model.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out
}
