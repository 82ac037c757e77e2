// Package tracker provides the version information of the proposal tracker.
package tracker

// Version is the current version of the tracker.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
