package model

// JobStatus represents the lifecycle state of a download job
type JobStatus string

const (
	// JobStatusQueued means the job is admitted but not started
	JobStatusQueued JobStatus = "queued"

	// JobStatusDownloading means the transcoder is (or is about to be) running
	JobStatusDownloading JobStatus = "downloading"

	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "completed"

	// JobStatusError means the job failed with an error
	JobStatusError JobStatus = "error"

	// JobStatusCancelled means the job was cancelled by the caller
	JobStatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsTerminal returns true if the status is one of the three terminal states.
// No transition leaves a terminal state; retry creates a new job instead.
func (js JobStatus) IsTerminal() bool {
	return js == JobStatusCompleted || js == JobStatusError || js == JobStatusCancelled
}

// IsActive returns true if the job occupies a concurrency slot
func (js JobStatus) IsActive() bool {
	return js == JobStatusDownloading
}

// Retryable returns true if a terminal job may be re-enqueued
func (js JobStatus) Retryable() bool {
	return js == JobStatusError || js == JobStatusCancelled
}
