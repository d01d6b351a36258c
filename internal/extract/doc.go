package extract

// Package extract talks to the external metadata extractor: probing a media
// page for its available formats and expanding playlist URLs into individual
// video entries.
