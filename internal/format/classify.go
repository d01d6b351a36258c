package format

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ytget/fetchmux/internal/model"
)

// Bitrate bucketing and ranking constants
const (
	BitrateRoundStep = 100 // kbit/s, fingerprint granularity
	FrameRateEpsilon = 0.1

	AudioTierHighKbps   = 192
	AudioTierMediumKbps = 128
)

// QualityLadder is the standard resolution ladder, best first. Entries below
// the lowest rung stay in the flat lists but get no tier key.
var QualityLadder = []int{4320, 2160, 1440, 1080, 720, 480, 360, 240, 144}

// resolutionNoteRe matches explicit resolution notes such as "1080p60"
var resolutionNoteRe = regexp.MustCompile(`(\d{3,4})p`)

// Extractor protocols and extensions that mark adaptive-streaming manifests
// rather than direct media.
var manifestMarkers = []string{"m3u8", "dash", "mpd", "f4m"}

// Placeholder extensions the extractor emits for non-media entries
var placeholderExtensions = []string{"mhtml", "none"}

// Classify filters, deduplicates, classifies and ranks a raw format list.
// Empty, all-filtered and all-duplicate inputs yield an empty set, not an error.
func Classify(raw []model.Format) *model.ClassifiedFormatSet {
	kept := filter(raw)
	kept = deduplicate(kept)

	set := &model.ClassifiedFormatSet{
		ByQualityTier: make(map[string]model.TierGroup),
	}

	var provisionalVideo []model.Format
	for _, f := range kept {
		switch {
		case f.HasVideo() && f.HasAudio():
			set.Combined = append(set.Combined, f)
		case f.HasVideo():
			provisionalVideo = append(provisionalVideo, f)
		default:
			set.AudioOnly = append(set.AudioOnly, f)
		}
	}

	// Platforms that expose only muxed streams label them as video-only and
	// publish no separate audio. In that case the provisional video list is
	// really a list of combined streams.
	if len(set.AudioOnly) == 0 && len(provisionalVideo) > 0 {
		set.Combined = append(set.Combined, provisionalVideo...)
	} else {
		set.VideoOnly = provisionalVideo
	}

	rank(set.VideoOnly)
	rank(set.AudioOnly)
	rank(set.Combined)

	bucketByTier(set)
	selectBest(set)
	groupAudioTiers(set)

	return set
}

// filter drops entries with no usable source URL, manifest-only entries,
// placeholder entries, and entries with neither video nor audio content.
func filter(raw []model.Format) []model.Format {
	kept := make([]model.Format, 0, len(raw))
	for _, f := range raw {
		if !usableURL(f.SourceURL) {
			continue
		}
		if isManifestOnly(&f) {
			continue
		}
		if isPlaceholder(&f) {
			continue
		}
		if !f.HasVideo() && !f.HasAudio() {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func usableURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func isManifestOnly(f *model.Format) bool {
	proto := strings.ToLower(f.Protocol)
	for _, m := range manifestMarkers {
		if strings.Contains(proto, m) {
			return true
		}
	}
	lower := strings.ToLower(f.SourceURL)
	return strings.HasSuffix(lower, ".m3u8") || strings.HasSuffix(lower, ".mpd")
}

func isPlaceholder(f *model.Format) bool {
	ext := strings.ToLower(f.Extension)
	for _, p := range placeholderExtensions {
		if ext == p {
			return true
		}
	}
	return strings.Contains(strings.ToLower(f.QualityNote), "storyboard")
}

// deduplicate collapses entries sharing a fingerprint, keeping the better one.
// Input order is preserved for the surviving entries.
func deduplicate(formats []model.Format) []model.Format {
	type slot struct {
		idx int
		f   model.Format
	}
	seen := make(map[string]slot, len(formats))
	order := make([]string, 0, len(formats))

	for i, f := range formats {
		fp := fingerprint(&f)
		existing, ok := seen[fp]
		if !ok {
			seen[fp] = slot{idx: i, f: f}
			order = append(order, fp)
			continue
		}
		if Compare(&f, &existing.f) > 0 {
			seen[fp] = slot{idx: existing.idx, f: f}
		}
	}

	out := make([]model.Format, 0, len(order))
	for _, fp := range order {
		out = append(out, seen[fp].f)
	}
	return out
}

// fingerprint computes the dedup key for one entry. The key shape depends on
// the entry's content indicators so that e.g. two combined streams differing
// only in codec build suffix collapse.
func fingerprint(f *model.Format) string {
	switch {
	case f.HasVideo() && f.HasAudio():
		return fmt.Sprintf("c|%d|%d|%s|%s|%d",
			f.Height, f.Width, VideoCodecFamily(f.VideoCodec), AudioCodecFamily(f.AudioCodec),
			roundBitrate(f.EffectiveBitrate()))
	case f.HasVideo():
		return fmt.Sprintf("v|%d|%d|%s|%d",
			f.Height, f.Width, VideoCodecFamily(f.VideoCodec),
			roundBitrate(f.EffectiveBitrate()))
	default:
		return fmt.Sprintf("a|%s|%d",
			AudioCodecFamily(f.AudioCodec), roundBitrate(f.EffectiveAudioBitrate()))
	}
}

func roundBitrate(kbps float64) int {
	if kbps <= 0 {
		return 0
	}
	return int(math.Round(kbps/BitrateRoundStep)) * BitrateRoundStep
}

// Compare ranks two formats. It returns a positive value when a is better,
// negative when b is better, zero when the comparator cannot split them.
// Criteria apply in strict precedence; each only breaks remaining ties.
func Compare(a, b *model.Format) int {
	// Height, when either side carries video.
	if a.HasVideo() || b.HasVideo() {
		if a.Height != b.Height {
			return a.Height - b.Height
		}
	}

	// Bitrate, when both sides have a usable value or both are audio-only.
	abr, bbr := a.EffectiveBitrate(), b.EffectiveBitrate()
	bothAudio := !a.HasVideo() && !b.HasVideo()
	if (abr > 0 && bbr > 0) || bothAudio {
		if abr != bbr {
			if abr > bbr {
				return 1
			}
			return -1
		}
	}

	if d := videoPriority(a.VideoCodec) - videoPriority(b.VideoCodec); d != 0 {
		return d
	}

	if d := audioPriority(a.AudioCodec) - audioPriority(b.AudioCodec); d != 0 {
		return d
	}

	if math.Abs(a.FrameRate-b.FrameRate) > FrameRateEpsilon {
		if a.FrameRate > b.FrameRate {
			return 1
		}
		return -1
	}

	if a.FileSize != b.FileSize {
		if a.FileSize > b.FileSize {
			return 1
		}
		return -1
	}

	return 0
}

// rank sorts a list best-first, keeping input order among full ties
func rank(list []model.Format) {
	sort.SliceStable(list, func(i, j int) bool {
		return Compare(&list[i], &list[j]) > 0
	})
}

// TierKey returns the quality tier for a format with video content, or ""
// when no tier is determinable (no note, height below the lowest rung).
func TierKey(f *model.Format) string {
	if m := resolutionNoteRe.FindStringSubmatch(f.QualityNote); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil {
			for _, rung := range QualityLadder {
				if h == rung {
					return fmt.Sprintf("%dp", rung)
				}
			}
		}
	}

	for _, rung := range QualityLadder {
		if f.Height >= rung {
			return fmt.Sprintf("%dp", rung)
		}
	}
	return ""
}

func bucketByTier(set *model.ClassifiedFormatSet) {
	for _, f := range set.VideoOnly {
		key := TierKey(&f)
		if key == "" {
			continue
		}
		group := set.ByQualityTier[key]
		group.Video = append(group.Video, f)
		set.ByQualityTier[key] = group
	}
	for _, f := range set.Combined {
		key := TierKey(&f)
		if key == "" {
			continue
		}
		group := set.ByQualityTier[key]
		group.Combined = append(group.Combined, f)
		set.ByQualityTier[key] = group
	}
}

func selectBest(set *model.ClassifiedFormatSet) {
	if len(set.VideoOnly) > 0 {
		set.Best.Video = &set.VideoOnly[0]
	}
	if len(set.AudioOnly) > 0 {
		set.Best.Audio = &set.AudioOnly[0]
	}
	if len(set.Combined) > 0 {
		set.Best.Combined = &set.Combined[0]
	}
}

// groupAudioTiers partitions the ranked audio-only list into disjoint quality
// buckets; formats reporting no bitrate at all stay only in the flat list.
func groupAudioTiers(set *model.ClassifiedFormatSet) {
	for _, f := range set.AudioOnly {
		kbps := f.EffectiveAudioBitrate()
		switch {
		case kbps >= AudioTierHighKbps:
			set.AudioByTier.High = append(set.AudioByTier.High, f)
		case kbps >= AudioTierMediumKbps:
			set.AudioByTier.Medium = append(set.AudioByTier.Medium, f)
		case kbps > 0:
			set.AudioByTier.Low = append(set.AudioByTier.Low, f)
		}
	}
}
