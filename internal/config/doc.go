package config

// Package config loads runtime settings from config files, environment
// variables and command line flags, in ascending precedence.
