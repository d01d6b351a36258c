package model

// RequestKind selects the stream layout a caller wants downloaded
type RequestKind string

const (
	// KindCombined downloads a single stream carrying both audio and video
	KindCombined RequestKind = "combined"

	// KindMergeVideoAudio downloads separate video and audio streams and muxes them
	KindMergeVideoAudio RequestKind = "video+audio-merge"

	// KindMutedVideo downloads a video stream and drops any audio track
	KindMutedVideo RequestKind = "muted-video"

	// KindAudioOnly downloads (or extracts) the audio track alone
	KindAudioOnly RequestKind = "audio-only"

	// KindImage downloads a still image such as the media thumbnail
	KindImage RequestKind = "image"
)

// Valid reports whether the kind is one of the closed set
func (k RequestKind) Valid() bool {
	switch k {
	case KindCombined, KindMergeVideoAudio, KindMutedVideo, KindAudioOnly, KindImage:
		return true
	}
	return false
}

// AudioTier names a coarse audio quality bucket for declarative requests
type AudioTier string

const (
	AudioTierBest   AudioTier = "best"
	AudioTierHigh   AudioTier = "high"
	AudioTierMedium AudioTier = "medium"
	AudioTierLow    AudioTier = "low"
)

// QualityFilter is the declarative half of a DownloadRequest: instead of
// naming format ids, the caller states the quality ceiling it wants.
type QualityFilter struct {
	MaxHeight int       // desired maximum video height, 0 means best available
	AudioTier AudioTier // desired audio bucket, empty means best
}

// DownloadRequest is a caller's declarative intent, consumed immediately by
// the selector. Exactly one of the explicit id fields or Filter is honored
// per Kind; shape is validated at the selection boundary.
type DownloadRequest struct {
	Kind RequestKind

	// Explicit selection.
	FormatID      string // combined / muted-video / audio-only / image
	VideoFormatID string // video+audio-merge
	AudioFormatID string // video+audio-merge

	// Declarative selection, used when the explicit ids are empty.
	Filter *QualityFilter

	// TargetContainer overrides the default output container for the kind.
	TargetContainer string

	// ThumbnailURL backs KindImage requests; formats carry no image streams.
	ThumbnailURL string
}

// Explicit reports whether the request names concrete format ids
func (r *DownloadRequest) Explicit() bool {
	if r.Kind == KindMergeVideoAudio {
		return r.VideoFormatID != "" || r.AudioFormatID != ""
	}
	return r.FormatID != ""
}

// ResolvedRequest is the selector's output and the queue's admission unit:
// concrete source URLs plus the container/codec plan for the transcoder.
type ResolvedRequest struct {
	Kind         RequestKind
	SourceURL    string // primary stream
	AudioURL     string // secondary audio stream for merge requests, else ""
	Container    string // target container / extension
	VideoCodec   string // source video codec, empty for audio-only
	AudioCodec   string // source audio codec
	Quality      string // quality label, "original" when streams are copied
	TargetHeight int    // scale target, 0 means keep source resolution
	ExtractAudio bool   // drop the video track (audio-only from a combined source)
	MuteAudio    bool   // drop the audio track
	Title        string // display title from the extractor
	Duration     float64
}
