package metadata

import "runtime/debug"

// Revision is set at build time with -ldflags "-X ...metadata.Revision=<rev>".
var Revision = ""

func init() {
	if Revision != "" {
		return
	}
	Revision = "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Revision = setting.Value
			}
		}
	}
}
