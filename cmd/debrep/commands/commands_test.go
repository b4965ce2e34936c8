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

package commands

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hixio-mh/debrepbuild/config"
	"github.com/hixio-mh/debrepbuild/contents"
	"github.com/hixio-mh/debrepbuild/fetch"
)

func TestPoolSuites(t *testing.T) {
	pool := t.TempDir()
	for _, dir := range []string{"amd64", "i386", "source"} {
		if err := os.Mkdir(filepath.Join(pool, dir), 0755); err != nil {
			t.Fatalf("failed to create pool dir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(pool, "stray-file"), nil, 0644); err != nil {
		t.Fatalf("failed to create stray file: %v", err)
	}

	suites, err := poolSuites(pool)
	if err != nil {
		t.Fatalf("failed to list suites: %v", err)
	}
	want := []contents.Suite{
		{Arch: "amd64", PoolPath: filepath.Join(pool, "amd64")},
		{Arch: "i386", PoolPath: filepath.Join(pool, "i386")},
	}
	if !reflect.DeepEqual(suites, want) {
		t.Fatalf("unexpected suites: got %v, want %v", suites, want)
	}
}

func TestPoolSuitesMissingBase(t *testing.T) {
	suites, err := poolSuites(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing pool base should not error: %v", err)
	}
	if len(suites) != 0 {
		t.Fatalf("unexpected suites: %v", suites)
	}
}

func TestDirectTargets(t *testing.T) {
	cfg := &config.Config{
		Direct: []config.Direct{
			{
				Name: "atom-editor",
				Arch: "amd64",
				URLs: []config.DirectURL{
					{
						URL:      "https://example.com/pool/atom-editor_1.28.0_amd64.deb",
						Checksum: "0f343b0931126a20f133d67c2b018a3b5651e9abd8c5ecdd7b4bd1bb8fe0a971",
					},
					{
						URL:  "https://example.com/pool/atom-data.deb?release=latest",
						Name: "atom-data_1.28.0_all.deb",
					},
				},
			},
		},
	}

	targets, err := directTargets(cfg, filepath.Join("repo", "pool", "bionic"))
	if err != nil {
		t.Fatalf("failed to build targets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}

	if got, want := targets[0].Destination, filepath.Join("repo", "pool", "bionic", "amd64", "atom-editor_1.28.0_amd64.deb"); got != want {
		t.Fatalf("unexpected destination: got %s, want %s", got, want)
	}
	checksum, ok := targets[0].Compare.(fetch.Checksum)
	if !ok || checksum.Digest.Encoded() != "0f343b0931126a20f133d67c2b018a3b5651e9abd8c5ecdd7b4bd1bb8fe0a971" {
		t.Fatalf("unexpected compare rule: %+v", targets[0].Compare)
	}

	if got, want := targets[1].Destination, filepath.Join("repo", "pool", "bionic", "amd64", "atom-data_1.28.0_all.deb"); got != want {
		t.Fatalf("unexpected destination: got %s, want %s", got, want)
	}
	if checksum := targets[1].Compare.(fetch.Checksum); checksum.Digest != "" {
		t.Fatalf("expected verify-nothing checksum, got %s", checksum.Digest)
	}
}
