// Package version reports what is running. Version and Build are set with
// -ldflags "-X hostingrelay/internal/version.Version=... -X ...Build=...".
package version

import "fmt"

const (
	Name        = "hostingrelay"
	Description = "Relays and combines booking platform iCal feeds"
)

var (
	Version = "0.1.0-dev"
	Build   = "unknown"
)

// Summary is the multi-line banner served on the health endpoint.
func Summary() string {
	return fmt.Sprintf("%s\n%s\nVersion: %s\nBuild: %s\n", Name, Description, Version, Build)
}
