package model

import "testing"

func TestGetETAString(t *testing.T) {
	tests := []struct {
		name     string
		etaSec   int
		expected string
	}{
		{"unknown ETA", -1, "—"},
		{"zero ETA", 0, "—"},
		{"seconds only", 45, "00:45"},
		{"minutes and seconds", 125, "02:05"},
		{"hours", 3725, "01:02:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Progress: Progress{ETASec: tt.etaSec}}
			if got := job.GetETAString(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestGetDisplayTitle(t *testing.T) {
	tests := []struct {
		name     string
		job      Job
		expected string
	}{
		{
			"prefers title",
			Job{Request: ResolvedRequest{Title: "Some Video", SourceURL: "https://example.com/v"}, OutputPath: "/tmp/out.mp4"},
			"Some Video",
		},
		{
			"skips URL-shaped title",
			Job{Request: ResolvedRequest{Title: "https://example.com/v"}, OutputPath: "/tmp/clip name.mp4"},
			"clip name",
		},
		{
			"falls back to source URL",
			Job{Request: ResolvedRequest{SourceURL: "https://example.com/v"}},
			"https://example.com/v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.GetDisplayTitle(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSnapshotDropsHandle(t *testing.T) {
	job := &Job{ID: "j1", Handle: fakeHandle{}}
	snap := job.Snapshot()

	if snap.Handle != nil {
		t.Error("Expected snapshot to drop the process handle")
	}
	if snap.ID != "j1" {
		t.Errorf("Expected ID j1, got %s", snap.ID)
	}
}

type fakeHandle struct{}

func (fakeHandle) Kill() error { return nil }

func TestFormatContentIndicators(t *testing.T) {
	video := Format{VideoCodec: "avc1", Height: 1080}
	if !video.HasVideo() || video.HasAudio() {
		t.Error("Expected video-only indicators")
	}

	audio := Format{AudioCodec: "opus", SampleRate: 48000}
	if audio.HasVideo() || !audio.HasAudio() {
		t.Error("Expected audio-only indicators")
	}

	// Height alone marks video content even with codec "none".
	heightOnly := Format{VideoCodec: CodecNone, Height: 720}
	if !heightOnly.HasVideo() {
		t.Error("Expected height to imply video content")
	}

	neither := Format{VideoCodec: CodecNone, AudioCodec: CodecNone}
	if neither.HasVideo() || neither.HasAudio() {
		t.Error("Expected no content indicators")
	}
}
