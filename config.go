// Completion: 100% - Environment-derived build configuration
package main

import "github.com/xyproto/env/v2"

// BuildConfig holds the settings the CLI reads from the environment
// before looking at flags, so CI and editor integrations can pin a build
// directory without threading it through every invocation.
type BuildConfig struct {
	BuildDir string
}

// LoadBuildConfig reads ADEADC_BUILD_DIR (spec §6), defaulting to "build"
// in the current working directory when unset.
func LoadBuildConfig() BuildConfig {
	return BuildConfig{
		BuildDir: env.Str("ADEADC_BUILD_DIR", "build"),
	}
}
