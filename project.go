// Completion: 100% - Project manifest and `new`/`init` scaffolding
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectManifest is the `adead.toml` schema a project directory carries
// (package name, entry file, default target), the way a Cargo.toml or
// go.mod anchors a project. `new`/`init` write it and LoadProjectManifest
// reads it; the `build` and `run` commands do not consult it.
type ProjectManifest struct {
	Package struct {
		Name   string `toml:"name"`
		Entry  string `toml:"entry"`
		Target string `toml:"target"`
	} `toml:"package"`
}

// LoadProjectManifest reads adead.toml from dir, if present.
func LoadProjectManifest(dir string) (*ProjectManifest, error) {
	path := filepath.Join(dir, "adead.toml")
	var m ProjectManifest
	if _, err := os.Stat(path); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

const defaultManifestTemplate = `[package]
name = %q
entry = "main.ad"
target = "linux"
`

const defaultMainTemplate = `#![mode(normal)]
#![base(linux)]

fn main() -> i32 {
	return 0
}
`

// ScaffoldProject implements the `new` command: creates dir, writes
// adead.toml and a starter main.ad inside it.
func ScaffoldProject(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Path: dir, Err: err}
	}
	manifestPath := filepath.Join(dir, "adead.toml")
	if err := os.WriteFile(manifestPath, []byte(fmt.Sprintf(defaultManifestTemplate, name)), 0o644); err != nil {
		return &IOError{Path: manifestPath, Err: err}
	}
	mainPath := filepath.Join(dir, "main.ad")
	if err := os.WriteFile(mainPath, []byte(defaultMainTemplate), 0o644); err != nil {
		return &IOError{Path: mainPath, Err: err}
	}
	return nil
}

// InitProject implements the `init` command: same as ScaffoldProject but
// targets the current directory and infers the project name from it.
func InitProject(dir string) error {
	name := filepath.Base(dir)
	if name == "." || name == "/" {
		if wd, err := os.Getwd(); err == nil {
			name = filepath.Base(wd)
		}
	}
	return ScaffoldProject(dir, name)
}
