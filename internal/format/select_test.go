package format

import (
	"errors"
	"testing"

	"github.com/ytget/fetchmux/internal/model"
)

func classifiedFixture() *model.ClassifiedFormatSet {
	return Classify([]model.Format{
		videoFormat("v1080", 1080, "avc1"),
		videoFormat("v720", 720, "avc1"),
		videoFormat("v360", 360, "avc1"),
		audioFormat("ahigh", "opus", 200),
		audioFormat("alow", "mp4a", 96),
		combinedFormat("c720", 720),
		combinedFormat("c360", 360),
	})
}

func TestSelectExplicitCombined(t *testing.T) {
	set := classifiedFixture()

	res, err := Select(set, &model.DownloadRequest{Kind: model.KindCombined, FormatID: "c360"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != testURL+"/c360" {
		t.Errorf("Expected c360 source url, got %s", res.SourceURL)
	}
	if res.AudioURL != "" {
		t.Error("Expected no secondary audio url for a combined stream")
	}
}

func TestSelectExplicitNotFound(t *testing.T) {
	set := classifiedFixture()

	_, err := Select(set, &model.DownloadRequest{Kind: model.KindCombined, FormatID: "missing"})
	if !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("Expected ErrFormatNotFound, got %v", err)
	}

	// A video-only id is not valid for a combined request.
	_, err = Select(set, &model.DownloadRequest{Kind: model.KindCombined, FormatID: "v720"})
	if !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("Expected ErrFormatNotFound for wrong list, got %v", err)
	}
}

func TestSelectExplicitMerge(t *testing.T) {
	set := classifiedFixture()

	res, err := Select(set, &model.DownloadRequest{
		Kind:          model.KindMergeVideoAudio,
		VideoFormatID: "v720",
		AudioFormatID: "ahigh",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != testURL+"/v720" || res.AudioURL != testURL+"/ahigh" {
		t.Errorf("Unexpected stream pair: %s / %s", res.SourceURL, res.AudioURL)
	}
}

func TestSelectMergeMissingID(t *testing.T) {
	set := classifiedFixture()

	_, err := Select(set, &model.DownloadRequest{
		Kind:          model.KindMergeVideoAudio,
		VideoFormatID: "v720",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest for half-specified merge, got %v", err)
	}
}

func TestSelectFilterMergeClosestAtOrAbove(t *testing.T) {
	set := classifiedFixture()

	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindMergeVideoAudio,
		Filter: &model.QualityFilter{MaxHeight: 700, AudioTier: model.AudioTierHigh},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// 720 is the closest height at-or-above 700.
	if res.SourceURL != testURL+"/v720" {
		t.Errorf("Expected v720, got %s", res.SourceURL)
	}
	if res.AudioURL != testURL+"/ahigh" {
		t.Errorf("Expected high-tier audio, got %s", res.AudioURL)
	}
}

func TestSelectFilterMergeFallsBackDownward(t *testing.T) {
	set := Classify([]model.Format{
		videoFormat("v480", 480, "avc1"),
		videoFormat("v360", 360, "avc1"),
		audioFormat("a1", "opus", 160),
	})

	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindMergeVideoAudio,
		Filter: &model.QualityFilter{MaxHeight: 2160},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != testURL+"/v360" {
		t.Errorf("Expected lowest available when nothing qualifies upward, got %s", res.SourceURL)
	}
}

func TestSelectEqualHeightPrefersBetterRanked(t *testing.T) {
	hi := videoFormat("v720hi", 720, "avc1")
	hi.VideoBitrate = 4000
	lo := videoFormat("v720lo", 720, "avc1")
	lo.VideoBitrate = 600

	set := Classify([]model.Format{lo, hi, audioFormat("a1", "opus", 160)})
	if len(set.VideoOnly) != 2 || set.VideoOnly[0].ID != "v720hi" {
		t.Fatalf("Fixture must rank the high-bitrate 720p first, got %+v", set.VideoOnly)
	}

	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindMergeVideoAudio,
		Filter: &model.QualityFilter{MaxHeight: 720},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != testURL+"/v720hi" {
		t.Errorf("Expected the better-ranked of the equal-height candidates, got %s", res.SourceURL)
	}
}

func TestSelectFallbackLowestPrefersBetterRanked(t *testing.T) {
	hi := videoFormat("v360hi", 360, "avc1")
	hi.VideoBitrate = 800
	lo := videoFormat("v360lo", 360, "avc1")
	lo.VideoBitrate = 200

	set := Classify([]model.Format{lo, hi, audioFormat("a1", "opus", 160)})

	// Nothing qualifies at-or-above, so selection falls back to the lowest
	// height; equal heights still resolve to the better-ranked entry.
	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindMergeVideoAudio,
		Filter: &model.QualityFilter{MaxHeight: 2160},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != testURL+"/v360hi" {
		t.Errorf("Expected the better-ranked 360p stream, got %s", res.SourceURL)
	}
}

func TestSelectAudioTierFallback(t *testing.T) {
	set := Classify([]model.Format{
		videoFormat("v720", 720, "avc1"),
		audioFormat("alow", "mp4a", 96), // only a low-tier stream exists
	})

	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindMergeVideoAudio,
		Filter: &model.QualityFilter{MaxHeight: 720, AudioTier: model.AudioTierHigh},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.AudioURL != testURL+"/alow" {
		t.Errorf("Expected best-available audio fallback, got %s", res.AudioURL)
	}
}

func TestSelectAudioOnlyFallsBackToCombined(t *testing.T) {
	set := Classify([]model.Format{
		combinedFormat("c720", 720),
		combinedFormat("c360", 360),
	})
	if len(set.AudioOnly) != 0 {
		t.Fatalf("Fixture must have no audio-only formats, got %d", len(set.AudioOnly))
	}

	res, err := Select(set, &model.DownloadRequest{Kind: model.KindAudioOnly})
	if err != nil {
		t.Fatalf("Expected combined fallback, got error %v", err)
	}
	if !res.ExtractAudio {
		t.Error("Expected the result to be tagged for audio extraction")
	}
	if res.SourceURL != testURL+"/c720" {
		t.Errorf("Expected best combined stream, got %s", res.SourceURL)
	}
}

func TestSelectCombinedTransparentMergeFallback(t *testing.T) {
	set := Classify([]model.Format{
		videoFormat("v1080", 1080, "avc1"),
		audioFormat("a1", "opus", 160),
	})
	if len(set.Combined) != 0 {
		t.Fatalf("Fixture must have no combined formats, got %d", len(set.Combined))
	}

	res, err := Select(set, &model.DownloadRequest{Kind: model.KindCombined})
	if err != nil {
		t.Fatalf("Expected merge fallback, got error %v", err)
	}
	if res.Kind != model.KindMergeVideoAudio {
		t.Errorf("Expected merge result, got %s", res.Kind)
	}
	if res.AudioURL == "" {
		t.Error("Expected a secondary audio stream from the merge fallback")
	}
}

func TestSelectMutedVideoUsesCombinedPool(t *testing.T) {
	set := Classify([]model.Format{
		combinedFormat("c720", 720),
	})

	res, err := Select(set, &model.DownloadRequest{Kind: model.KindMutedVideo})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.MuteAudio {
		t.Error("Expected the result to be tagged for muting")
	}
	if res.SourceURL != testURL+"/c720" {
		t.Errorf("Expected combined stream in the muted pool, got %s", res.SourceURL)
	}
}

func TestSelectImage(t *testing.T) {
	res, err := Select(&model.ClassifiedFormatSet{}, &model.DownloadRequest{
		Kind:         model.KindImage,
		ThumbnailURL: "https://img.example.com/t.jpg",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.SourceURL != "https://img.example.com/t.jpg" {
		t.Errorf("Unexpected image source: %s", res.SourceURL)
	}

	_, err = Select(&model.ClassifiedFormatSet{}, &model.DownloadRequest{Kind: model.KindImage})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest without thumbnail, got %v", err)
	}
}

func TestSelectRejectsUnusableURL(t *testing.T) {
	bad := videoFormat("v1", 720, "avc1")
	bad.SourceURL = "ftp://example.com/clip"

	set := &model.ClassifiedFormatSet{Combined: []model.Format{bad}}
	_, err := Select(set, &model.DownloadRequest{Kind: model.KindCombined, FormatID: "v1"})
	if !errors.Is(err, ErrInvalidSourceURL) {
		t.Errorf("Expected ErrInvalidSourceURL, got %v", err)
	}
}

func TestSelectUnknownKind(t *testing.T) {
	_, err := Select(&model.ClassifiedFormatSet{}, &model.DownloadRequest{Kind: "bogus"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestSelectScalePlanForLowerQuality(t *testing.T) {
	set := classifiedFixture()

	res, err := Select(set, &model.DownloadRequest{
		Kind:   model.KindCombined,
		Filter: &model.QualityFilter{MaxHeight: 480},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// Closest at-or-above 480 in the combined list is 720; the plan scales down.
	if res.TargetHeight != 480 {
		t.Errorf("Expected scale target 480, got %d", res.TargetHeight)
	}
	if res.Quality != "480p" {
		t.Errorf("Expected quality label 480p, got %s", res.Quality)
	}
}
