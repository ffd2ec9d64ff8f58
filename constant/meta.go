// Package constant defines application identifiers and build metadata.
package constant

import _ "embed"

const (
	// Avplay names the binary, the config file and the environment prefix.
	Avplay = "avplay"

	Version = "0.3.0"
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

//go:embed ascii.txt
var AsciiArtLogo string
