package version

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X github.com/evolvinglmms-lab/docsync/internal/version.Version=v1.0.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns "version (commit, built time)".
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
