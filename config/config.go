/*
   Copyright The Debrepbuild Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config holds the declarative description of a repository: its
// identity fields and the packages it is built from, backed by a TOML
// file conventionally named sources.toml.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is the conventional location of the repository spec,
// relative to the directory the repository is built from.
const DefaultConfigPath = "sources.toml"

// Config is the in-memory representation of the repository's TOML spec.
type Config struct {
	// Archive is the suite name of the repository (e.g. "bionic").
	Archive string `toml:"archive"`
	// Version is the release version advertised in Release files.
	Version string `toml:"version"`
	// Origin identifies who produced the repository.
	Origin string `toml:"origin"`
	// Label is the human-readable repository label.
	Label string `toml:"label"`
	// Email selects the GPG key used to sign the release manifest.
	Email string `toml:"email"`

	// Direct lists packages which are already in the deb format.
	Direct []Direct `toml:"direct,omitempty"`
	// Source lists projects which are built from source.
	Source []Source `toml:"source,omitempty"`
	// Repos lists external repos to pull packages from.
	Repos []Repo `toml:"repos,omitempty"`

	// DefaultComponent is the component new packages land in.
	DefaultComponent string `toml:"default_component"`
}

// Direct describes a pre-built package acquired from one or more URLs.
type Direct struct {
	Name    string      `toml:"name"`
	Version string      `toml:"version"`
	Arch    string      `toml:"arch"`
	URLs    []DirectURL `toml:"urls"`
}

// DirectURL is one artifact location of a Direct package. Checksum, when
// set, is the hex-encoded SHA256 of the artifact.
type DirectURL struct {
	URL      string `toml:"url"`
	Name     string `toml:"name,omitempty"`
	Checksum string `toml:"checksum,omitempty"`
}

// Source describes a project built from source, located either at a
// remote URL or a local path, but never both.
type Source struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	URL     string `toml:"url,omitempty"`
	Path    string `toml:"path,omitempty"`
	// Depends lists extra build dependencies installed before building.
	Depends []string `toml:"depends,omitempty"`
}

// Repo describes an external apt repository packages are pulled from.
type Repo struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
	Key  string `toml:"key,omitempty"`
}

// Load reads and validates the repository spec at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %q: %w", path, err)
	}
	defer f.Close()

	cfg := &Config{}
	if err = toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
	}
	if cfg.DefaultComponent == "" {
		cfg.DefaultComponent = "main"
	}
	for _, source := range cfg.Source {
		if source.URL != "" && source.Path != "" {
			return nil, fmt.Errorf("source %q defines both a URL and a path; only one may be set", source.Name)
		}
		if source.URL == "" && source.Path == "" {
			return nil, fmt.Errorf("source %q defines neither a URL nor a path", source.Name)
		}
	}
	return cfg, nil
}

// Write serializes the spec back to path.
func (c *Config) Write(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %q: %w", path, err)
	}
	return nil
}

// DirectExists reports whether name matches a direct package or one of
// its renamed artifacts.
func (c *Config) DirectExists(name string) bool {
	for _, direct := range c.Direct {
		if direct.Name == name {
			return true
		}
		for _, u := range direct.URLs {
			if u.Name == name {
				return true
			}
		}
	}
	return false
}

// SourceExists reports whether name matches a source-built project.
func (c *Config) SourceExists(name string) bool {
	for _, source := range c.Source {
		if source.Name == name {
			return true
		}
	}
	return false
}

// PackageExists reports whether name is defined anywhere in the spec.
func (c *Config) PackageExists(name string) bool {
	return c.DirectExists(name) || c.SourceExists(name)
}
