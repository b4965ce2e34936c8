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

// Package fetch acquires remote artifacts into the local pool, deciding
// per artifact whether the copy already on disk is current and
// verifying what it downloads.
package fetch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/opencontainers/go-digest"
)

// Compare is the rule used to decide whether a local artifact already
// satisfies its remote source. It is a closed set: either a content
// digest or a size with an optional modification time.
type Compare interface {
	isCompare()
}

// Checksum accepts a local artifact whose SHA256 digest matches Digest.
// An empty digest accepts any existing file, verifying nothing.
type Checksum struct {
	Digest digest.Digest
}

// SizeAndTime accepts a local artifact whose byte length equals Size
// and, when ModTime is set, whose modification time equals it exactly.
type SizeAndTime struct {
	Size    int64
	ModTime *time.Time
}

func (Checksum) isCompare()    {}
func (SizeAndTime) isCompare() {}

// ChecksumFromHex builds a Checksum from a hex-encoded SHA256 string,
// as carried by the repository spec. An empty string yields the
// verify-nothing checksum.
func ChecksumFromHex(encoded string) Checksum {
	if encoded == "" {
		return Checksum{}
	}
	return Checksum{Digest: digest.NewDigestFromEncoded(digest.SHA256, encoded)}
}

// RequiresFetch reports whether the artifact at path must be downloaded
// again to satisfy compare. A missing file always requires a fetch; an
// existing one is checked against the rule with exact equality, no
// tolerance window.
func RequiresFetch(path string, compare Compare) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	switch c := compare.(type) {
	case Checksum:
		if c.Digest == "" {
			return false, nil
		}
		actual, err := digestFile(path, c.Digest.Algorithm())
		if err != nil {
			return false, err
		}
		return actual != c.Digest, nil
	case SizeAndTime:
		if info.Size() != c.Size {
			return true, nil
		}
		if c.ModTime == nil {
			return false, nil
		}
		return info.ModTime().Unix() != c.ModTime.Unix(), nil
	default:
		return false, fmt.Errorf("unknown compare rule %T", compare)
	}
}

func digestFile(path string, algorithm digest.Algorithm) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	actual, err := algorithm.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return actual, nil
}
