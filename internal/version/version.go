// Package version provides the respkv-server version string.
// The version is set at build time via -ldflags.
package version

// Version is the current respkv-server version.
// Override at build time: go build -ldflags "-X github.com/flashdb/respkv/internal/version.Version=1.1.0"
var Version = "0.1.0"

// BuildTime is the build timestamp.
// Override at build time: go build -ldflags "-X github.com/flashdb/respkv/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = "unknown"
