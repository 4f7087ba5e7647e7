// Package version provides the current server version.
package version

// Version is the service current released version.
var Version = "0.4.2"

// DevVersion is the service current development version.
var DevVersion = "0.4.2"

// GetCurrentVersion returns the version string for the given mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}
