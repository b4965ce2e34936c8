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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSources = `archive = "bionic"
version = "18.04"
origin = "example"
label = "Example"
email = "packaging@example.com"
default_component = "main"

[[direct]]
name = "atom-editor"
version = "1.26.1"
arch = "amd64"

  [[direct.urls]]
  url = "https://example.com/atom-amd64.deb"
  checksum = "0f343b0931126a20f133d67c2b018a3b5651e9abd8c5ecdd7b4bd1bb8fe0a971"

[[source]]
name = "hello"
version = "2.10"
url = "https://example.com/hello.tar.gz"

[[repos]]
name = "upstream"
url = "https://apt.example.com"
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testSources))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Archive != "bionic" {
		t.Fatalf("expected archive %q, got %q", "bionic", cfg.Archive)
	}
	if len(cfg.Direct) != 1 || cfg.Direct[0].Name != "atom-editor" {
		t.Fatalf("unexpected direct packages: %+v", cfg.Direct)
	}
	if len(cfg.Direct[0].URLs) != 1 || cfg.Direct[0].URLs[0].Checksum != "0f343b0931126a20f133d67c2b018a3b5651e9abd8c5ecdd7b4bd1bb8fe0a971" {
		t.Fatalf("unexpected direct urls: %+v", cfg.Direct[0].URLs)
	}
	if !cfg.PackageExists("atom-editor") || !cfg.PackageExists("hello") {
		t.Fatal("expected configured packages to exist")
	}
	if cfg.PackageExists("unknown") {
		t.Fatal("did not expect unknown package to exist")
	}
}

func TestLoadRejectsAmbiguousSource(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		source string
	}{
		{
			name: "url and path",
			source: `[[source]]
name = "hello"
version = "2.10"
url = "https://example.com/hello.tar.gz"
path = "vendor/hello"
`,
		},
		{
			name: "neither url nor path",
			source: `[[source]]
name = "hello"
version = "2.10"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, "archive = \"bionic\"\n"+tc.source))
			if err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, testSources)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "sources.toml")
	if err := cfg.Write(out); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatalf("unexpected error reloading config: %v", err)
	}
	if *cfg2flat(reloaded) != *cfg2flat(cfg) {
		t.Fatalf("round trip changed config: %+v != %+v", reloaded, cfg)
	}
}

// cfg2flat projects the comparable scalar fields for equality checks.
func cfg2flat(c *Config) *[6]string {
	return &[6]string{c.Archive, c.Version, c.Origin, c.Label, c.Email, c.DefaultComponent}
}

func TestGet(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testSources))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testCases := []struct {
		key   string
		value string
	}{
		{key: "archive", value: "bionic"},
		{key: "email", value: "packaging@example.com"},
		{key: "default_component", value: "main"},
		{key: "direct.atom-editor.version", value: "1.26.1"},
		// source keys must resolve in the source collection, not direct.
		{key: "source.hello.version", value: "2.10"},
		{key: "source.hello.url", value: "https://example.com/hello.tar.gz"},
		{key: "repos.upstream.url", value: "https://apt.example.com"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			got, err := cfg.Get(tc.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.value {
				t.Fatalf("expected %q, got %q", tc.value, got)
			}
		})
	}
}

func TestGetSubtree(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testSources))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rendered, err := cfg.Get("direct.atom-editor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, "name = 'atom-editor'") && !strings.Contains(rendered, `name = "atom-editor"`) {
		t.Fatalf("expected TOML rendering of the direct package, got %q", rendered)
	}
}

func TestGetInvalidKey(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testSources))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"nope", "direct.unknown.version", "source.atom-editor.version", "archive.nested", ""} {
		if _, err := cfg.Get(key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testSources))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.Set("version", "18.10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != "18.10" {
		t.Fatalf("expected version to be updated, got %q", cfg.Version)
	}

	if err := cfg.Set("source.hello.version", "2.11"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source[0].Version != "2.11" {
		t.Fatalf("expected source version to be updated, got %q", cfg.Source[0].Version)
	}

	if err := cfg.Set("direct.atom-editor", "nope"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey setting a non-leaf, got %v", err)
	}
}
