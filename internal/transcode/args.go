package transcode

import (
	"fmt"
	"strings"

	"github.com/ytget/fetchmux/internal/format"
	"github.com/ytget/fetchmux/internal/model"
)

// FFmpeg encoding defaults per target container
const (
	VideoCodecH264   = "libx264"
	VideoCodecVP9    = "libvpx-vp9"
	VideoPreset      = "medium"
	VideoCRFH264     = "23"
	VideoCRFVP9      = "32"
	AudioCodecAAC    = "aac"
	AudioCodecOpus   = "libopus"
	AudioCodecMP3    = "libmp3lame"
	AudioBitrate     = "128k"
	AudioBitrateHigh = "192k"

	FastStartFlag      = "+faststart"
	ProgressPipeTarget = "pipe:2"

	// Reconnect options for flaky network sources
	ReconnectDelayMax = "5"
)

// Containers that admit each codec family without re-encoding. mkv admits
// everything and is absent on purpose.
var (
	containerVideoFamilies = map[string][]format.CodecFamily{
		"mp4":  {format.VideoFamilyAVC, format.VideoFamilyHEVC, format.VideoFamilyAV1},
		"webm": {format.VideoFamilyVP8, format.VideoFamilyVP9, format.VideoFamilyAV1},
	}

	containerAudioFamilies = map[string][]format.CodecFamily{
		"mp4":  {format.AudioFamilyAAC, format.AudioFamilyMP3},
		"webm": {format.AudioFamilyOpus},
		"m4a":  {format.AudioFamilyAAC},
		"ogg":  {format.AudioFamilyOpus},
		"mp3":  {format.AudioFamilyMP3},
	}
)

// BuildArgs builds the ffmpeg argument list for a resolved request. User
// passthrough options are appended last so they can override the defaults.
func BuildArgs(req model.ResolvedRequest, outputPath string, passthrough []string) []string {
	args := []string{"-y", "-hide_banner"}

	args = append(args, inputArgs(req.SourceURL)...)
	if req.AudioURL != "" {
		args = append(args, inputArgs(req.AudioURL)...)
	}

	args = append(args, mappingArgs(req)...)
	args = append(args, codecArgs(req)...)

	if req.TargetHeight > 0 && req.Kind != model.KindAudioOnly && req.Kind != model.KindImage {
		// -2 keeps the width divisible by two, required by most encoders.
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", req.TargetHeight))
	}

	if req.Container == "mp4" {
		args = append(args, "-movflags", FastStartFlag)
	}

	args = append(args, "-progress", ProgressPipeTarget, "-nostats")
	args = append(args, passthrough...)
	args = append(args, outputPath)
	return args
}

// inputArgs prepends reconnect options for network sources before the input
func inputArgs(url string) []string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return []string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", ReconnectDelayMax,
			"-i", url,
		}
	}
	return []string{"-i", url}
}

func mappingArgs(req model.ResolvedRequest) []string {
	switch {
	case req.AudioURL != "":
		return []string{"-map", "0:v:0", "-map", "1:a:0"}
	case req.MuteAudio:
		return []string{"-an"}
	case req.Kind == model.KindAudioOnly:
		return []string{"-vn"}
	default:
		return nil
	}
}

// codecArgs picks stream-copy or a re-encode ladder per stream. Copying
// requires "original" quality, no scale target, and a container that admits
// the source codec.
func codecArgs(req model.ResolvedRequest) []string {
	if req.Kind == model.KindImage {
		return []string{"-c", "copy"}
	}

	var args []string

	if req.Kind != model.KindAudioOnly {
		if copyVideoOK(req) {
			args = append(args, "-c:v", "copy")
		} else {
			args = append(args, videoLadder(req.Container)...)
		}
	}

	if !req.MuteAudio {
		if copyAudioOK(req) {
			args = append(args, "-c:a", "copy")
		} else {
			args = append(args, audioLadder(req.Container)...)
		}
	}

	return args
}

func copyVideoOK(req model.ResolvedRequest) bool {
	if req.Quality != format.QualityOriginal || req.TargetHeight > 0 {
		return false
	}
	return containerAdmitsVideo(req.Container, req.VideoCodec)
}

func copyAudioOK(req model.ResolvedRequest) bool {
	if req.Quality != format.QualityOriginal {
		return false
	}
	return containerAdmitsAudio(req.Container, req.AudioCodec)
}

func containerAdmitsVideo(container, codec string) bool {
	if container == "mkv" {
		return true
	}
	families, ok := containerVideoFamilies[container]
	if !ok {
		return false
	}
	family := format.VideoCodecFamily(codec)
	for _, f := range families {
		if f == family {
			return true
		}
	}
	return false
}

func containerAdmitsAudio(container, codec string) bool {
	if container == "mkv" {
		return true
	}
	families, ok := containerAudioFamilies[container]
	if !ok {
		return false
	}
	family := format.AudioCodecFamily(codec)
	for _, f := range families {
		if f == family {
			return true
		}
	}
	return false
}

func videoLadder(container string) []string {
	switch container {
	case "webm":
		return []string{"-c:v", VideoCodecVP9, "-crf", VideoCRFVP9, "-b:v", "0"}
	default:
		return []string{"-c:v", VideoCodecH264, "-preset", VideoPreset, "-crf", VideoCRFH264}
	}
}

func audioLadder(container string) []string {
	switch container {
	case "webm", "ogg":
		return []string{"-c:a", AudioCodecOpus, "-b:a", AudioBitrate}
	case "mp3":
		return []string{"-c:a", AudioCodecMP3, "-b:a", AudioBitrateHigh}
	case "m4a":
		return []string{"-c:a", AudioCodecAAC, "-b:a", AudioBitrateHigh}
	default:
		return []string{"-c:a", AudioCodecAAC, "-b:a", AudioBitrate}
	}
}
