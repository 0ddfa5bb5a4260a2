package flags

// Centralized definitions for CLI flags used across the application

const (
	// Mode selects the backend (mock, real, or auto for probe-based detection)
	Mode      = "mode"
	ModeShort = "m"

	// Endpoint overrides the S3 endpoint URL, typically to address a local emulator
	Endpoint = "endpoint"

	// Profile selects an AWS shared-config profile for the real backend
	Profile = "profile"

	// ConfigFile points at an explicit config file instead of the default location
	ConfigFile = "config"

	// User attaches a caller user-id; operations are then gated by the authorizer
	User      = "user"
	UserShort = "u"

	// Metadata carries object metadata as a JSON object of string pairs
	Metadata = "metadata"

	// Content uploads inline text instead of reading a source file
	Content = "content"

	// Prefix filters object listings
	Prefix = "prefix"

	// PartSize sets the multipart part size in bytes for large uploads
	PartSize = "part-size"

	// Force bypasses the interactive confirmation prompt for destructive operations
	Force      = "force"
	ForceShort = "f"

	// Local restricts cleanup to the mirror directory tree
	Local = "local"

	// Debug enables verbose logging
	Debug      = "debug"
	DebugShort = "d"
)
