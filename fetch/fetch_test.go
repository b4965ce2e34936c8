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

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

func newArtifactServer(t *testing.T, bodies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	requests := new(atomic.Int32)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		body := bodies[len(bodies)-1]
		if n <= len(bodies) {
			body = bodies[n-1]
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestFetchIdempotentSkip(t *testing.T) {
	t.Parallel()

	const content = "already here"
	dest := filepath.Join(t.TempDir(), "artifact.deb")
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		t.Fatalf("failed to seed destination: %v", err)
	}

	server, requests := newArtifactServer(t, content)
	fetcher := NewFetcher(server.Client())

	written, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     Checksum{Digest: digest.FromString(content)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 {
		t.Fatalf("expected 0 bytes written, got %d", written)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("expected no network requests, got %d", got)
	}
}

func TestFetchWritesDestination(t *testing.T) {
	t.Parallel()

	const content = "fresh artifact bytes"
	server, _ := newArtifactServer(t, content)
	fetcher := NewFetcher(server.Client())

	// The parent directory does not exist yet.
	dest := filepath.Join(t.TempDir(), "pool", "amd64", "artifact.deb")
	written, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     Checksum{Digest: digest.FromString(content)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != int64(len(content)) {
		t.Fatalf("expected %d bytes written, got %d", len(content), written)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(data) != content {
		t.Fatalf("expected %q, got %q", content, data)
	}
}

func TestFetchDigestRetryExhaustsBudget(t *testing.T) {
	t.Parallel()

	server, requests := newArtifactServer(t, "corrupted")
	fetcher := NewFetcher(server.Client())

	dest := filepath.Join(t.TempDir(), "artifact.deb")
	_, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     Checksum{Digest: digest.FromString("expected")},
	})

	var integrityErr *IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrityErr.Path != dest {
		t.Fatalf("expected error to name %s, got %s", dest, integrityErr.Path)
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("expected exactly 3 transfer attempts, got %d", got)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected mismatching file to be deleted, stat err: %v", err)
	}
}

func TestFetchDigestRetrySucceedsOnSecondAttempt(t *testing.T) {
	t.Parallel()

	const content = "good on the second try"
	server, requests := newArtifactServer(t, "corrupted", content)
	fetcher := NewFetcher(server.Client())

	dest := filepath.Join(t.TempDir(), "artifact.deb")
	written, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     Checksum{Digest: digest.FromString(content)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != int64(len(content)) {
		t.Fatalf("expected %d bytes written, got %d", len(content), written)
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("expected 2 transfer attempts, got %d", got)
	}
}

func TestFetchPropagatesModTime(t *testing.T) {
	t.Parallel()

	const content = "timestamped artifact"
	server, _ := newArtifactServer(t, content)
	fetcher := NewFetcher(server.Client())

	mtime := time.Unix(1525003035, 0)
	dest := filepath.Join(t.TempDir(), "artifact.deb")
	_, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     SizeAndTime{Size: int64(len(content)), ModTime: &mtime},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("failed to stat destination: %v", err)
	}
	if info.ModTime().Unix() != mtime.Unix() {
		t.Fatalf("expected mtime %d, got %d", mtime.Unix(), info.ModTime().Unix())
	}

	// A second fetch must now be a no-op.
	written, err := fetcher.Fetch(context.Background(), Target{
		URL:         server.URL,
		Destination: dest,
		Compare:     SizeAndTime{Size: int64(len(content)), ModTime: &mtime},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 {
		t.Fatalf("expected 0 bytes written on refetch, got %d", written)
	}
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	const content = "batch artifact"
	server, _ := newArtifactServer(t, content)
	fetcher := NewFetcher(server.Client())

	dir := t.TempDir()
	var targets []Target
	for _, name := range []string{"a.deb", "b.deb", "c.deb"} {
		targets = append(targets, Target{
			URL:         server.URL,
			Destination: filepath.Join(dir, name),
			Compare:     Checksum{Digest: digest.FromString(content)},
		})
	}

	if err := fetcher.FetchAll(context.Background(), targets, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, target := range targets {
		if _, err := os.Stat(target.Destination); err != nil {
			t.Fatalf("expected %s to exist: %v", target.Destination, err)
		}
	}
}
