package transcode

import (
	"strconv"
	"strings"
	"time"

	"github.com/ytget/fetchmux/internal/model"
)

// Progress line key prefixes emitted by ffmpeg -progress
const (
	ProgressTimePrefix    = "out_time_us="
	ProgressFramePrefix   = "frame="
	ProgressBitratePrefix = "bitrate="
	ProgressSizePrefix    = "total_size="
	ProgressSpeedPrefix   = "speed="
	ProgressBlockPrefix   = "progress="

	ProgressValueUnknown = "N/A"
)

// progressParser accumulates ffmpeg key=value lines into a running Progress
// snapshot. Fields merge: a block that omits a key keeps the previous value.
type progressParser struct {
	snapshot model.Progress
	duration float64 // media duration in seconds, 0 if unknown
	started  time.Time
}

func newProgressParser(duration float64) *progressParser {
	return &progressParser{
		snapshot: model.Progress{ETASec: -1},
		duration: duration,
		started:  time.Now(),
	}
}

// ParseLine consumes one progress line. It returns a snapshot and true when a
// block terminator arrives, meaning the snapshot should be published.
func (p *progressParser) ParseLine(line string) (model.Progress, bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, ProgressTimePrefix):
		value := strings.TrimPrefix(line, ProgressTimePrefix)
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.snapshot.OutTimeSec = float64(us) / 1e6
		}
	case strings.HasPrefix(line, ProgressFramePrefix):
		value := strings.TrimPrefix(line, ProgressFramePrefix)
		if frames, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			p.snapshot.Frames = frames
		}
	case strings.HasPrefix(line, ProgressSizePrefix):
		value := strings.TrimPrefix(line, ProgressSizePrefix)
		if size, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.snapshot.SizeBytes = size
		}
	case strings.HasPrefix(line, ProgressBitratePrefix):
		value := strings.TrimSpace(strings.TrimPrefix(line, ProgressBitratePrefix))
		if value != "" && value != ProgressValueUnknown {
			p.snapshot.Bitrate = value
		}
	case strings.HasPrefix(line, ProgressSpeedPrefix):
		value := strings.TrimSpace(strings.TrimPrefix(line, ProgressSpeedPrefix))
		if value != "" && value != ProgressValueUnknown {
			p.snapshot.Speed = value
		}
	case strings.HasPrefix(line, ProgressBlockPrefix):
		p.recompute()
		return p.snapshot, true
	}

	return model.Progress{}, false
}

// recompute derives percent and ETA from the output position and elapsed time
func (p *progressParser) recompute() {
	if p.duration <= 0 {
		return
	}

	percent := p.snapshot.OutTimeSec / p.duration * 100
	if percent > 100 {
		percent = 100
	}
	p.snapshot.Percent = percent

	if percent > 0 {
		elapsed := time.Since(p.started).Seconds()
		p.snapshot.ETASec = int(elapsed * (100 - percent) / percent)
	}
}
