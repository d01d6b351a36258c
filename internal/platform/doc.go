package platform

// Package platform contains small OS integration helpers: filesystem
// bootstrap and default directory resolution.
