package model

// Package model defines domain data structures used across the app: media
// format descriptors, download requests, jobs, and status enums. Structures
// are passive; each is mutated by at most one component at a time.
