package config

// Version is the worktrail binary version.
// Set at build time via: -ldflags "-X github.com/worktrail/worktrail/internal/config.Version=<tag>"
var Version = "dev"
