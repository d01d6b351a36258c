package model

import (
	"fmt"
	"strings"
	"time"
)

// ProcessHandle is the minimal control surface over a running external
// process. It is attached to a job at most once, after the process has
// actually been spawned; cancellation treats a missing handle as best-effort.
type ProcessHandle interface {
	Kill() error
}

// Progress is the job's progress snapshot. Updates merge field-wise: a new
// update overwrites only the fields it carries, unspecified fields persist.
type Progress struct {
	Percent    float64
	ETASec     int     // -1 if unknown
	Speed      string  // human readable, e.g. "1.2x" or "3.4MB/s"
	Bitrate    string  // transcoder-reported output bitrate
	Frames     int64   // frames written so far
	OutTimeSec float64 // output position in seconds
	SizeBytes  int64   // output size so far
}

// Job represents one admitted, trackable unit of download work
type Job struct {
	ID         string
	Status     JobStatus
	Request    ResolvedRequest // snapshot of the resolved request
	OutputPath string
	StartedAt  time.Time // when the job left the queue
	UpdatedAt  time.Time // last progress or status change
	FinishedAt time.Time // when a terminal status was reached
	Progress   Progress
	LastError  string // last error message if any
	Warning    string // non-fatal post-run diagnostics (e.g. empty output file)
	SizeBytes  int64  // final output size in bytes

	// Handle is set exactly once, after the external process spawns.
	// It stays nil for queued jobs and for jobs cancelled before spawn.
	Handle ProcessHandle
}

// Snapshot returns a caller-safe copy of the job without the process handle
func (j *Job) Snapshot() Job {
	c := *j
	c.Handle = nil
	return c
}

// GetETAString returns ETA formatted as hh:mm:ss or mm:ss, "—" if unknown
func (j *Job) GetETAString() string {
	if j.Progress.ETASec <= 0 {
		return "—"
	}

	hours := j.Progress.ETASec / 3600
	minutes := (j.Progress.ETASec % 3600) / 60
	seconds := j.Progress.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns the extractor title, the output filename, or the
// source URL in order of preference
func (j *Job) GetDisplayTitle() string {
	if j.Request.Title != "" && !strings.HasPrefix(j.Request.Title, "http") {
		return j.Request.Title
	}

	if j.OutputPath != "" {
		parts := strings.FieldsFunc(j.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.Request.SourceURL
}
