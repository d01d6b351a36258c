package transcode

// Package transcode wraps one invocation of the external ffmpeg process per
// job: building the argument list from a resolved request, parsing the
// structured progress stream, and reporting the terminal outcome.
