package format

import "strings"

// CodecFamily is a normalized codec name used for ranking and deduplication
type CodecFamily string

// Video codec families, best first
const (
	VideoFamilyAV1     CodecFamily = "av1"
	VideoFamilyVP9     CodecFamily = "vp9"
	VideoFamilyHEVC    CodecFamily = "hevc"
	VideoFamilyAVC     CodecFamily = "avc"
	VideoFamilyVP8     CodecFamily = "vp8"
	VideoFamilyUnknown CodecFamily = "unknown"
)

// Audio codec families, best first
const (
	AudioFamilyOpus    CodecFamily = "opus"
	AudioFamilyAAC     CodecFamily = "aac"
	AudioFamilyMP3     CodecFamily = "mp3"
	AudioFamilyUnknown CodecFamily = "audio-unknown"
)

// Ranking priorities; higher wins
var (
	videoFamilyPriority = map[CodecFamily]int{
		VideoFamilyAV1:     5,
		VideoFamilyVP9:     4,
		VideoFamilyHEVC:    3,
		VideoFamilyAVC:     2,
		VideoFamilyVP8:     1,
		VideoFamilyUnknown: 0,
	}

	audioFamilyPriority = map[CodecFamily]int{
		AudioFamilyOpus:    3,
		AudioFamilyAAC:     2,
		AudioFamilyMP3:     1,
		AudioFamilyUnknown: 0,
	}
)

// VideoCodecFamily normalizes an extractor-reported video codec string.
// Extractors report variants like "avc1.4d401e", "vp09.00.10.08" or "h264".
func VideoCodecFamily(codec string) CodecFamily {
	c := strings.ToLower(codec)
	switch {
	case c == "" || c == "none":
		return VideoFamilyUnknown
	case strings.HasPrefix(c, "av01") || strings.HasPrefix(c, "av1"):
		return VideoFamilyAV1
	case strings.HasPrefix(c, "vp9") || strings.HasPrefix(c, "vp09"):
		return VideoFamilyVP9
	case strings.HasPrefix(c, "hev") || strings.HasPrefix(c, "hvc") ||
		strings.HasPrefix(c, "h265") || strings.HasPrefix(c, "hevc"):
		return VideoFamilyHEVC
	case strings.HasPrefix(c, "avc") || strings.HasPrefix(c, "h264"):
		return VideoFamilyAVC
	case strings.HasPrefix(c, "vp8") || strings.HasPrefix(c, "vp08"):
		return VideoFamilyVP8
	default:
		return VideoFamilyUnknown
	}
}

// AudioCodecFamily normalizes an extractor-reported audio codec string
func AudioCodecFamily(codec string) CodecFamily {
	c := strings.ToLower(codec)
	switch {
	case c == "" || c == "none":
		return AudioFamilyUnknown
	case strings.HasPrefix(c, "opus"):
		return AudioFamilyOpus
	case strings.HasPrefix(c, "mp4a") || strings.HasPrefix(c, "aac"):
		return AudioFamilyAAC
	case strings.HasPrefix(c, "mp3") || strings.HasPrefix(c, "mpga"):
		return AudioFamilyMP3
	default:
		return AudioFamilyUnknown
	}
}

// videoPriority returns the ranking weight of a raw video codec string
func videoPriority(codec string) int {
	return videoFamilyPriority[VideoCodecFamily(codec)]
}

// audioPriority returns the ranking weight of a raw audio codec string
func audioPriority(codec string) int {
	return audioFamilyPriority[AudioCodecFamily(codec)]
}
