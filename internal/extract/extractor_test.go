package extract

import (
	"encoding/json"
	"testing"
)

const probeFixture = `{
	"id": "abc123",
	"title": "Test Video",
	"duration": 212.5,
	"thumbnail": "https://i.example.com/abc123.jpg",
	"formats": [
		{
			"format_id": "sb0",
			"ext": "mhtml",
			"vcodec": "none",
			"acodec": "none",
			"format_note": "storyboard",
			"url": "https://i.example.com/sb.mhtml",
			"protocol": "mhtml"
		},
		{
			"format_id": "140",
			"ext": "m4a",
			"vcodec": "none",
			"acodec": "mp4a.40.2",
			"abr": 129.5,
			"asr": 44100,
			"audio_channels": 2,
			"filesize": 3456789,
			"url": "https://cdn.example.com/140",
			"protocol": "https"
		},
		{
			"format_id": "137",
			"ext": "mp4",
			"vcodec": "avc1.640028",
			"acodec": "none",
			"height": 1080,
			"width": 1920,
			"fps": 29.97,
			"vbr": 4500.1,
			"tbr": 4500.1,
			"filesize_approx": 120000000,
			"url": "https://cdn.example.com/137",
			"protocol": "https",
			"dynamic_range": "SDR",
			"format_note": "1080p"
		}
	]
}`

func TestMapFormatFields(t *testing.T) {
	var raw rawInfo
	if err := json.Unmarshal([]byte(probeFixture), &raw); err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}

	if raw.ID != "abc123" || raw.Title != "Test Video" {
		t.Errorf("Unexpected media identity: %s / %s", raw.ID, raw.Title)
	}
	if raw.Duration != 212.5 {
		t.Errorf("Expected duration 212.5, got %f", raw.Duration)
	}
	if len(raw.Formats) != 3 {
		t.Fatalf("Expected 3 formats, got %d", len(raw.Formats))
	}

	video := mapFormat(raw.Formats[2])
	if video.ID != "137" || video.Height != 1080 || video.Width != 1920 {
		t.Errorf("Unexpected video format mapping: %+v", video)
	}
	if video.FrameRate != 29.97 {
		t.Errorf("Expected fps 29.97, got %f", video.FrameRate)
	}
	if video.FileSize != 120000000 {
		t.Errorf("Expected approx filesize fallback, got %d", video.FileSize)
	}
	if video.QualityNote != "1080p" {
		t.Errorf("Expected format note preserved, got %q", video.QualityNote)
	}
	if !video.HasVideo() || video.HasAudio() {
		t.Error("Expected a video-only format")
	}

	audio := mapFormat(raw.Formats[1])
	if audio.AudioBitrate != 129.5 || audio.SampleRate != 44100 || audio.AudioChannels != 2 {
		t.Errorf("Unexpected audio format mapping: %+v", audio)
	}
	if audio.FileSize != 3456789 {
		t.Errorf("Expected exact filesize preferred, got %d", audio.FileSize)
	}
	if audio.HasVideo() || !audio.HasAudio() {
		t.Error("Expected an audio-only format")
	}

	storyboard := mapFormat(raw.Formats[0])
	if storyboard.HasVideo() || storyboard.HasAudio() {
		t.Error("Expected storyboard to carry no usable streams")
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single line", "ERROR: video unavailable", "ERROR: video unavailable"},
		{"multi line", "WARNING: something\nERROR: video unavailable", "ERROR: video unavailable"},
		{"trailing blank lines", "ERROR: gone\n\n  \n", "ERROR: gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastLine(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
