// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"

	"dario.cat/mergo"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/mitchellh/hashstructure/v2"

	nserrors "grimm.is/netsim/internal/errors"
)

// File is a loaded topology config paired with the path it came from, so it
// can be reloaded in place.
type File struct {
	Path        string
	Config      *Config
	fingerprint uint64
}

// Load reads and decodes an HCL topology file from path, merging it over
// Default() so partial files only need to specify overrides.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nserrors.Wrap(err, nserrors.KindFormat, "failed to read config file")
	}
	return LoadFromBytes(path, data)
}

// LoadFromBytes decodes HCL source already in memory, as Load does for a file.
func LoadFromBytes(filename string, data []byte) (*File, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, nserrors.Wrap(err, nserrors.KindFormat, "failed to decode topology HCL")
	}

	merged := Default()
	if err := mergo.Merge(merged, cfg, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, nserrors.Wrap(err, nserrors.KindFormat, "failed to merge config over defaults")
	}

	fp, err := hashstructure.Hash(merged, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, nserrors.Wrap(err, nserrors.KindInvariantViolation, "failed to fingerprint config")
	}

	return &File{Path: filename, Config: merged, fingerprint: fp}, nil
}

// Reload re-reads f.Path and reports whether the parsed config actually
// changed (via a hashstructure fingerprint comparison), so a caller wiring
// fsnotify doesn't act on no-op filesystem events (e.g. an editor's atomic
// save-then-rename touching the file without changing its content).
func (f *File) Reload() (changed bool, err error) {
	next, err := Load(f.Path)
	if err != nil {
		return false, err
	}
	changed = next.fingerprint != f.fingerprint
	f.Config = next.Config
	f.fingerprint = next.fingerprint
	return changed, nil
}
