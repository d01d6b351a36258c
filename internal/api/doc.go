package api

// Package api exposes the job queue over HTTP: submission, inspection,
// cancellation and a live event stream.
