package format

import (
	"fmt"

	"github.com/ytget/fetchmux/internal/model"
)

// Default target containers per request kind
const (
	DefaultVideoContainer = "mp4"
	DefaultAudioContainer = "m4a"
	DefaultImageContainer = "jpg"

	// QualityOriginal marks a selection that needs no re-encode on its own
	QualityOriginal = "original"
)

// Select resolves a download request against a classified format set into a
// concrete instruction set for the queue. Explicit ids are looked up in the
// list implied by the kind; declarative filters walk the ranked lists with
// the documented fallbacks. Title and duration are filled in by the caller
// from the extraction metadata.
func Select(set *model.ClassifiedFormatSet, req *model.DownloadRequest) (model.ResolvedRequest, error) {
	if err := validateShape(req); err != nil {
		return model.ResolvedRequest{}, err
	}

	switch req.Kind {
	case model.KindImage:
		return selectImage(req)
	case model.KindMergeVideoAudio:
		return selectMerge(set, req)
	case model.KindMutedVideo:
		return selectMuted(set, req)
	case model.KindAudioOnly:
		return selectAudioOnly(set, req)
	default:
		return selectCombined(set, req)
	}
}

func validateShape(req *model.DownloadRequest) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}
	if req.Kind == model.KindImage && req.ThumbnailURL == "" {
		return fmt.Errorf("%w: image request without thumbnail url", ErrInvalidRequest)
	}
	if req.Kind == model.KindMergeVideoAudio && req.Explicit() {
		if req.VideoFormatID == "" || req.AudioFormatID == "" {
			return fmt.Errorf("%w: merge request needs both video and audio ids", ErrInvalidRequest)
		}
	}
	return nil
}

func selectImage(req *model.DownloadRequest) (model.ResolvedRequest, error) {
	if !usableURL(req.ThumbnailURL) {
		return model.ResolvedRequest{}, fmt.Errorf("%w: %q", ErrInvalidSourceURL, req.ThumbnailURL)
	}
	return model.ResolvedRequest{
		Kind:      model.KindImage,
		SourceURL: req.ThumbnailURL,
		Container: containerFor(req, DefaultImageContainer),
		Quality:   QualityOriginal,
	}, nil
}

func selectMerge(set *model.ClassifiedFormatSet, req *model.DownloadRequest) (model.ResolvedRequest, error) {
	var video, audio *model.Format

	if req.Explicit() {
		video = findByID(set.VideoOnly, req.VideoFormatID)
		audio = findByID(set.AudioOnly, req.AudioFormatID)
		if video == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: video id %q", ErrFormatNotFound, req.VideoFormatID)
		}
		if audio == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: audio id %q", ErrFormatNotFound, req.AudioFormatID)
		}
	} else {
		video = closestAtOrAbove(set.VideoOnly, filterHeight(req))
		audio = pickAudioTier(set, filterAudioTier(req))
		if video == nil || audio == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: merge needs separate video and audio streams", ErrNoMatchingFormats)
		}
	}

	if err := checkURLs(video, audio); err != nil {
		return model.ResolvedRequest{}, err
	}

	res := resolvedFrom(video, req, model.KindMergeVideoAudio)
	res.AudioURL = audio.SourceURL
	res.AudioCodec = audio.AudioCodec
	return res, nil
}

func selectMuted(set *model.ClassifiedFormatSet, req *model.DownloadRequest) (model.ResolvedRequest, error) {
	// Muting is the transcoder's job, so combined streams qualify too.
	pool := append(append([]model.Format{}, set.VideoOnly...), set.Combined...)
	rank(pool)

	var chosen *model.Format
	if req.Explicit() {
		chosen = findByID(pool, req.FormatID)
		if chosen == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: id %q", ErrFormatNotFound, req.FormatID)
		}
	} else {
		chosen = closestAtOrAbove(pool, filterHeight(req))
		if chosen == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: no video streams", ErrNoMatchingFormats)
		}
	}

	if err := checkURLs(chosen); err != nil {
		return model.ResolvedRequest{}, err
	}

	res := resolvedFrom(chosen, req, model.KindMutedVideo)
	res.MuteAudio = true
	return res, nil
}

func selectAudioOnly(set *model.ClassifiedFormatSet, req *model.DownloadRequest) (model.ResolvedRequest, error) {
	var chosen *model.Format
	extract := false

	if req.Explicit() {
		chosen = findByID(set.AudioOnly, req.FormatID)
		if chosen == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: id %q", ErrFormatNotFound, req.FormatID)
		}
	} else {
		chosen = pickAudioTier(set, filterAudioTier(req))
		if chosen == nil && len(set.Combined) > 0 {
			// No separate audio published; take the best combined stream and
			// let the transcoder discard the video track.
			chosen = &set.Combined[0]
			extract = true
		}
		if chosen == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: no audio streams", ErrNoMatchingFormats)
		}
	}

	if err := checkURLs(chosen); err != nil {
		return model.ResolvedRequest{}, err
	}

	res := model.ResolvedRequest{
		Kind:         model.KindAudioOnly,
		SourceURL:    chosen.SourceURL,
		Container:    containerFor(req, DefaultAudioContainer),
		AudioCodec:   chosen.AudioCodec,
		Quality:      QualityOriginal,
		ExtractAudio: extract,
	}
	return res, nil
}

func selectCombined(set *model.ClassifiedFormatSet, req *model.DownloadRequest) (model.ResolvedRequest, error) {
	if req.Explicit() {
		chosen := findByID(set.Combined, req.FormatID)
		if chosen == nil {
			return model.ResolvedRequest{}, fmt.Errorf("%w: id %q", ErrFormatNotFound, req.FormatID)
		}
		if err := checkURLs(chosen); err != nil {
			return model.ResolvedRequest{}, err
		}
		return resolvedFrom(chosen, req, model.KindCombined), nil
	}

	if len(set.Combined) == 0 {
		// Transparent fallback: resolve as a merge and reuse its result.
		merge := *req
		merge.Kind = model.KindMergeVideoAudio
		res, err := selectMerge(set, &merge)
		if err != nil {
			return model.ResolvedRequest{}, err
		}
		return res, nil
	}

	chosen := closestAtOrAbove(set.Combined, filterHeight(req))
	if err := checkURLs(chosen); err != nil {
		return model.ResolvedRequest{}, err
	}
	return resolvedFrom(chosen, req, model.KindCombined), nil
}

// resolvedFrom builds the common parts of an instruction set from the chosen
// video-bearing format.
func resolvedFrom(f *model.Format, req *model.DownloadRequest, kind model.RequestKind) model.ResolvedRequest {
	res := model.ResolvedRequest{
		Kind:       kind,
		SourceURL:  f.SourceURL,
		Container:  containerFor(req, DefaultVideoContainer),
		VideoCodec: f.VideoCodec,
		AudioCodec: f.AudioCodec,
		Quality:    QualityOriginal,
	}
	if want := filterHeight(req); want > 0 && f.Height > want {
		res.TargetHeight = want
		res.Quality = fmt.Sprintf("%dp", want)
	}
	return res
}

func containerFor(req *model.DownloadRequest, def string) string {
	if req.TargetContainer != "" {
		return req.TargetContainer
	}
	return def
}

func filterHeight(req *model.DownloadRequest) int {
	if req.Filter == nil {
		return 0
	}
	return req.Filter.MaxHeight
}

func filterAudioTier(req *model.DownloadRequest) model.AudioTier {
	if req.Filter == nil || req.Filter.AudioTier == "" {
		return model.AudioTierBest
	}
	return req.Filter.AudioTier
}

func findByID(list []model.Format, id string) *model.Format {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// closestAtOrAbove walks a best-first list and picks the entry whose height
// is closest at-or-above want. When nothing qualifies upward it falls back to
// the lowest available entry. want<=0 means best available. Ties on height
// resolve to the earlier, better-ranked entry.
func closestAtOrAbove(list []model.Format, want int) *model.Format {
	if len(list) == 0 {
		return nil
	}
	if want <= 0 {
		return &list[0]
	}
	chosen := -1
	for i := range list {
		if list[i].Height < want {
			continue
		}
		if chosen < 0 || list[i].Height < list[chosen].Height {
			chosen = i
		}
	}
	if chosen < 0 {
		lowest := 0
		for i := range list {
			if list[i].Height < list[lowest].Height {
				lowest = i
			}
		}
		return &list[lowest]
	}
	return &list[chosen]
}

// pickAudioTier returns the head of the requested tier, falling back to the
// best available audio-only format when the tier is empty.
func pickAudioTier(set *model.ClassifiedFormatSet, tier model.AudioTier) *model.Format {
	var bucket []model.Format
	switch tier {
	case model.AudioTierHigh:
		bucket = set.AudioByTier.High
	case model.AudioTierMedium:
		bucket = set.AudioByTier.Medium
	case model.AudioTierLow:
		bucket = set.AudioByTier.Low
	}
	if len(bucket) > 0 {
		return &bucket[0]
	}
	if len(set.AudioOnly) > 0 {
		return &set.AudioOnly[0]
	}
	return nil
}

func checkURLs(formats ...*model.Format) error {
	for _, f := range formats {
		if !usableURL(f.SourceURL) {
			return fmt.Errorf("%w: format %q", ErrInvalidSourceURL, f.ID)
		}
	}
	return nil
}
