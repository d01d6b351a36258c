package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/config"
	"github.com/ytget/fetchmux/internal/events"
	"github.com/ytget/fetchmux/internal/extract"
	"github.com/ytget/fetchmux/internal/model"
	"github.com/ytget/fetchmux/internal/queue"
)

// failingProber fails for one specific URL and delegates the rest
type failingProber struct {
	inner   fakeProber
	failURL string
}

func (p *failingProber) Probe(ctx context.Context, url string) (*extract.MediaInfo, error) {
	if url == p.failURL {
		return nil, errors.New("video unavailable")
	}
	return p.inner.Probe(ctx, url)
}

// fakeExpander returns a fixed entry list
type fakeExpander struct {
	entries []extract.PlaylistEntry
}

func (e *fakeExpander) Expand(ctx context.Context, url string) (*extract.Playlist, error) {
	return &extract.Playlist{ID: "PLtest", URL: url, Entries: e.entries}, nil
}

func testService(t *testing.T, prober extract.Prober, expander extract.PlaylistExpander, preset config.QualityPreset) *Service {
	t.Helper()

	manager := queue.NewManager(queue.Config{
		MaxConcurrent: 2,
		Cooldown:      time.Millisecond,
		OutputDir:     t.TempDir(),
	}, &stubRunner{block: true}, events.NewHub(nil), zap.NewNop())

	return NewService(prober, expander, manager, preset, zap.NewNop())
}

func TestSubmitPlaylist(t *testing.T) {
	expander := &fakeExpander{entries: []extract.PlaylistEntry{
		{ID: "a", Title: "First", URL: "https://www.youtube.com/watch?v=a"},
		{ID: "b", Title: "Second", URL: "https://www.youtube.com/watch?v=b"},
	}}
	svc := testService(t, &fakeProber{}, expander, config.QualityBest)

	resp, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://www.youtube.com/playlist?list=PLtest"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(resp.JobIDs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(resp.JobIDs))
	}
	if len(resp.Errors) != 0 {
		t.Errorf("Expected no entry errors, got %v", resp.Errors)
	}
}

func TestSubmitPlaylistPartialFailure(t *testing.T) {
	expander := &fakeExpander{entries: []extract.PlaylistEntry{
		{ID: "a", URL: "https://www.youtube.com/watch?v=a"},
		{ID: "b", URL: "https://www.youtube.com/watch?v=b"},
	}}
	prober := &failingProber{failURL: "https://www.youtube.com/watch?v=b"}
	svc := testService(t, prober, expander, config.QualityBest)

	resp, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://www.youtube.com/playlist?list=PLtest"})
	if err != nil {
		t.Fatalf("Expected partial success, got error: %v", err)
	}
	if len(resp.JobIDs) != 1 {
		t.Errorf("Expected 1 admitted job, got %d", len(resp.JobIDs))
	}
	if len(resp.Errors) != 1 || resp.Errors[0].URL != "https://www.youtube.com/watch?v=b" {
		t.Errorf("Expected 1 entry error for the failing URL, got %v", resp.Errors)
	}
}

func TestSubmitPlaylistAllFail(t *testing.T) {
	expander := &fakeExpander{entries: []extract.PlaylistEntry{
		{ID: "b", URL: "https://www.youtube.com/watch?v=b"},
	}}
	prober := &failingProber{failURL: "https://www.youtube.com/watch?v=b"}
	svc := testService(t, prober, expander, config.QualityBest)

	_, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://www.youtube.com/playlist?list=PLtest"})
	if err == nil {
		t.Error("Expected an error when no entry could be admitted")
	}
}

func TestBuildDownloadRequestPresets(t *testing.T) {
	tests := []struct {
		name           string
		preset         config.QualityPreset
		req            SubmitRequest
		expectedKind   model.RequestKind
		expectedHeight int
	}{
		{"best preset keeps best", config.QualityBest, SubmitRequest{URL: testMediaURL}, model.KindCombined, 0},
		{"medium preset caps height", config.QualityMedium, SubmitRequest{URL: testMediaURL}, model.KindCombined, 720},
		{"audio preset switches kind", config.QualityAudio, SubmitRequest{URL: testMediaURL}, model.KindAudioOnly, 0},
		{"explicit kind wins over preset", config.QualityAudio, SubmitRequest{URL: testMediaURL, Kind: "combined"}, model.KindCombined, 0},
		{"explicit height wins over preset", config.QualityMedium, SubmitRequest{URL: testMediaURL, MaxHeight: 1080}, model.KindCombined, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testService(t, &fakeProber{}, nil, tt.preset)

			dlReq, err := svc.buildDownloadRequest(tt.req)
			if err != nil {
				t.Fatalf("buildDownloadRequest failed: %v", err)
			}
			if dlReq.Kind != tt.expectedKind {
				t.Errorf("Expected kind %s, got %s", tt.expectedKind, dlReq.Kind)
			}
			height := 0
			if dlReq.Filter != nil {
				height = dlReq.Filter.MaxHeight
			}
			if height != tt.expectedHeight {
				t.Errorf("Expected height %d, got %d", tt.expectedHeight, height)
			}
		})
	}
}

func TestExplicitIDSkipsFilter(t *testing.T) {
	svc := testService(t, &fakeProber{}, nil, config.QualityMedium)

	dlReq, err := svc.buildDownloadRequest(SubmitRequest{URL: testMediaURL, FormatID: "22"})
	if err != nil {
		t.Fatalf("buildDownloadRequest failed: %v", err)
	}
	if dlReq.Filter != nil {
		t.Error("Expected no filter for an explicit format id")
	}
	if dlReq.FormatID != "22" {
		t.Errorf("Expected format id preserved, got %q", dlReq.FormatID)
	}
}
