package format

// Package format implements the format classification and selection engine:
// filtering and deduplicating raw extractor output, bucketing it into
// video-only / audio-only / combined groups ranked by quality, and resolving
// a caller's request into concrete downloadable streams.
