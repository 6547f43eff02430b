// Package version holds the cachekeep release version.
package version

// Version is the cachekeep version. It is overridden at build time:
//
//	go build -ldflags "-X github.com/cachekeep/cachekeep/pkg/version.Version=v1.2.3"
var Version = "0.1.0"
