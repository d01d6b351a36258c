package model

// Format describes one playable or encodable stream candidate returned by the
// metadata extractor. A Format is created fresh on every extraction, is
// immutable afterwards, and is never persisted.
type Format struct {
	ID            string  // opaque identifier assigned by the extractor
	Extension     string  // container / file extension (mp4, webm, m4a, ...)
	VideoCodec    string  // empty or "none" when the stream carries no video
	AudioCodec    string  // empty or "none" when the stream carries no audio
	Height        int
	Width         int
	FrameRate     float64
	VideoBitrate  float64 // kbit/s
	AudioBitrate  float64 // kbit/s
	TotalBitrate  float64 // kbit/s
	FileSize      int64   // bytes, exact when known, otherwise extractor estimate
	SourceURL     string
	Protocol      string // transport protocol as reported by the extractor
	DynamicRange  string // e.g. "SDR", "HDR10"
	SampleRate    int    // Hz
	AudioChannels int
	QualityNote   string // free-text quality hint such as "1080p60"
}

// CodecNone is the extractor's marker for an absent codec.
const CodecNone = "none"

// HasVideo reports whether the format carries video content.
func (f *Format) HasVideo() bool {
	return (f.VideoCodec != "" && f.VideoCodec != CodecNone) || f.Height > 0
}

// HasAudio reports whether the format carries audio content.
func (f *Format) HasAudio() bool {
	return (f.AudioCodec != "" && f.AudioCodec != CodecNone) || f.SampleRate > 0
}

// EffectiveBitrate returns the best available bitrate figure for ranking:
// total bitrate when present, otherwise video or audio bitrate.
func (f *Format) EffectiveBitrate() float64 {
	if f.TotalBitrate > 0 {
		return f.TotalBitrate
	}
	if f.VideoBitrate > 0 {
		return f.VideoBitrate
	}
	return f.AudioBitrate
}

// EffectiveAudioBitrate returns the audio bitrate, falling back to the total
// bitrate for audio-only formats that report only a combined figure.
func (f *Format) EffectiveAudioBitrate() float64 {
	if f.AudioBitrate > 0 {
		return f.AudioBitrate
	}
	if !f.HasVideo() {
		return f.TotalBitrate
	}
	return 0
}

// TierGroup holds the formats of one quality tier, split by stream layout.
type TierGroup struct {
	Video    []Format
	Combined []Format
}

// BestFormats points at the head of each ranked list. Any entry may be nil.
type BestFormats struct {
	Video    *Format
	Audio    *Format
	Combined *Format
}

// AudioTiers partitions audio-only formats into coarse quality buckets.
type AudioTiers struct {
	High   []Format // >= 192 kbit/s effective
	Medium []Format // >= 128 kbit/s effective
	Low    []Format // > 0 kbit/s effective
}

// ClassifiedFormatSet is the classifier's output for one extraction response.
// The three flat lists are disjoint, sorted best-first, and together equal the
// deduplicated, filtered input. Not mutated after construction.
type ClassifiedFormatSet struct {
	VideoOnly     []Format
	AudioOnly     []Format
	Combined      []Format
	ByQualityTier map[string]TierGroup
	Best          BestFormats
	AudioByTier   AudioTiers
}

// IsEmpty reports whether classification produced no usable formats.
func (s *ClassifiedFormatSet) IsEmpty() bool {
	return len(s.VideoOnly) == 0 && len(s.AudioOnly) == 0 && len(s.Combined) == 0
}
