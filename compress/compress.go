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

// Package compress fans a stream out into one or more encodings in a
// single pass over the input.
package compress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/hixio-mh/debrepbuild/util/ioutils"
)

// Flag selects the encodings to emit. Flags combine with bitwise or.
type Flag uint

const (
	// Uncompressed writes the stream verbatim to <destDir>/<name>.
	Uncompressed Flag = 1 << iota
	// Gzip writes a gzip encoding to <destDir>/<name>.gz.
	Gzip
	// Xz writes an xz encoding to <destDir>/<name>.xz.
	Xz
)

// Compress reads r once and writes every encoding selected by flags
// under destDir, named after name plus the encoding's suffix. It
// returns the uncompressed byte count.
//
// On any error the partially written outputs are removed.
func Compress(name, destDir string, r io.Reader, flags Flag) (n int64, err error) {
	if flags == 0 {
		return 0, fmt.Errorf("no encodings selected for %s", name)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	var (
		writers []io.Writer
		closers []io.Closer
		paths   []string
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if err != nil {
			for _, p := range paths {
				os.Remove(p)
			}
		}
	}()

	open := func(suffix string) (*os.File, error) {
		p := filepath.Join(destDir, name+suffix)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", p, err)
		}
		paths = append(paths, p)
		return f, nil
	}

	cw := new(ioutils.CountWriter)

	if flags&Uncompressed != 0 {
		f, err := open("")
		if err != nil {
			return 0, err
		}
		closers = append(closers, f)
		writers = append(writers, f)
	}
	if flags&Gzip != 0 {
		f, err := open(".gz")
		if err != nil {
			return 0, err
		}
		gw := gzip.NewWriter(f)
		closers = append(closers, f, gw)
		writers = append(writers, gw)
	}
	if flags&Xz != 0 {
		f, err := open(".xz")
		if err != nil {
			return 0, err
		}
		closers = append(closers, f)
		xw, err := xz.NewWriter(f)
		if err != nil {
			return 0, fmt.Errorf("failed to create xz writer for %s: %w", name, err)
		}
		closers = append(closers, xw)
		writers = append(writers, xw)
	}

	writers = append(writers, cw)
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return 0, fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return cw.Size(), nil
}
