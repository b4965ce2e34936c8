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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

// maxAttempts is the transfer budget per artifact when the downloaded
// content keeps failing digest verification.
const maxAttempts = 3

// Target describes one remote artifact and where it lands locally.
type Target struct {
	URL         string
	Destination string
	Compare     Compare
}

// IntegrityError is returned when every transfer attempt for an
// artifact produced content that failed digest verification.
type IntegrityError struct {
	Path string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum does not match for %s after %d attempts", e.Path, maxAttempts)
}

// Fetcher downloads artifacts over HTTP. The zero client defaults to
// http.DefaultClient; production callers pass the retryable client from
// internal/http.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher using the given HTTP client.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch acquires one artifact. It returns the number of bytes
// transferred, which is 0 when the local copy already satisfies the
// target's compare rule. Content failing digest verification is deleted
// and re-transferred up to the attempt budget; other failures propagate
// immediately.
func (f *Fetcher) Fetch(ctx context.Context, target Target) (int64, error) {
	for attempt := 1; ; attempt++ {
		required, err := RequiresFetch(target.Destination, target.Compare)
		if err != nil {
			return 0, err
		}
		if !required {
			return 0, nil
		}

		written, err := f.transfer(ctx, target)
		if err != nil {
			return 0, err
		}

		switch c := target.Compare.(type) {
		case Checksum:
			if c.Digest == "" {
				return written, nil
			}
			actual, err := digestFile(target.Destination, c.Digest.Algorithm())
			if err != nil {
				return 0, err
			}
			if actual == c.Digest {
				return written, nil
			}
			log.G(ctx).WithFields(logrus.Fields{
				"path":    target.Destination,
				"attempt": attempt,
			}).Error("checksum does not match, removing")
			if err := os.Remove(target.Destination); err != nil {
				return 0, fmt.Errorf("failed to remove %s: %w", target.Destination, err)
			}
			if attempt == maxAttempts {
				return 0, &IntegrityError{Path: target.Destination}
			}
		case SizeAndTime:
			if c.ModTime != nil {
				if err := propagateModTime(target.Destination, *c.ModTime); err != nil {
					return 0, err
				}
			}
			return written, nil
		default:
			return written, nil
		}
	}
}

// transfer streams the remote body straight into the destination file,
// truncating any previous content and creating parent directories on
// demand.
func (f *Fetcher) transfer(ctx context.Context, target Target) (int64, error) {
	if parent := filepath.Dir(target.Destination); parent != "." {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", parent, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", target.URL, err)
	}

	log.G(ctx).WithField("path", target.Destination).Info("downloading artifact")
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", target.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to fetch %s: unexpected status %s", target.URL, resp.Status)
	}

	out, err := os.OpenFile(target.Destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", target.Destination, err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", target.Destination, err)
	}
	return written, nil
}

// propagateModTime sets the file's modification time, preserving the
// access time currently on disk.
func propagateModTime(path string, mtime time.Time) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	atime := time.Unix(st.Atim.Sec, st.Atim.Nsec)
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("failed to set times on %s: %w", path, err)
	}
	return nil
}

// FetchAll downloads every target, bounding concurrency by limit (or
// GOMAXPROCS when limit is not positive). Destinations are distinct
// paths, so the targets share no state; the first failure cancels the
// remaining downloads.
func (f *Fetcher) FetchAll(ctx context.Context, targets []Target, limit int64) error {
	if limit <= 0 {
		limit = int64(runtime.GOMAXPROCS(0))
	}
	sem := semaphore.NewWeighted(limit)
	eg, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		eg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			written, err := f.Fetch(ctx, target)
			if err != nil {
				return err
			}
			if written == 0 {
				log.G(ctx).WithField("path", target.Destination).Debug("artifact up to date")
			} else {
				log.G(ctx).WithFields(logrus.Fields{
					"path":  target.Destination,
					"bytes": written,
				}).Info("downloaded artifact")
			}
			return nil
		})
	}
	return eg.Wait()
}
