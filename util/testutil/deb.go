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

// Package testutil builds synthetic Debian package archives for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// DebSpec describes the synthetic package archive to build.
type DebSpec struct {
	// Package and Section populate the control file when Control is
	// empty.
	Package string
	Section string

	// Control overrides the generated control file verbatim.
	Control string

	// Files are the data member entries. Directories are declared with
	// a trailing slash.
	Files []string

	// Xz compresses the inner members with xz instead of gzip.
	Xz bool

	// OmitControl and OmitData drop the respective member entirely.
	OmitControl bool
	OmitData    bool

	// DataFirst writes the data member ahead of the control member.
	DataFirst bool
}

// BuildDeb writes a package archive described by spec to path.
func BuildDeb(t *testing.T, path string, spec DebSpec) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	w := ar.NewWriter(f)
	if err := w.WriteGlobalHeader(); err != nil {
		t.Fatalf("failed to write ar header: %v", err)
	}

	writeMember(t, w, "debian-binary", []byte("2.0\n"))

	ext := "gz"
	if spec.Xz {
		ext = "xz"
	}

	controlMember := func() {
		if spec.OmitControl {
			return
		}
		control := spec.Control
		if control == "" {
			control = fmt.Sprintf("Package: %s\nVersion: 1.0.0\nSection: %s\nArchitecture: amd64\nDescription: synthetic test package\n", spec.Package, spec.Section)
		}
		tarball := controlTar(t, control, spec.Xz)
		writeMember(t, w, "control.tar."+ext, tarball)
	}
	dataMember := func() {
		if spec.OmitData {
			return
		}
		tarball := dataTar(t, spec.Files, spec.Xz)
		writeMember(t, w, "data.tar."+ext, tarball)
	}

	if spec.DataFirst {
		dataMember()
		controlMember()
	} else {
		controlMember()
		dataMember()
	}

	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
}

func writeMember(t *testing.T, w *ar.Writer, name string, body []byte) {
	t.Helper()
	header := &ar.Header{
		Name:    name,
		ModTime: time.Unix(0, 0),
		Mode:    0644,
		Size:    int64(len(body)),
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("failed to write member header %s: %v", name, err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("failed to write member %s: %v", name, err)
	}
}

func controlTar(t *testing.T, control string, useXz bool) []byte {
	t.Helper()
	return compressTar(t, useXz, func(tw *tar.Writer) {
		writeTarFile(t, tw, "./control", []byte(control))
	})
}

func dataTar(t *testing.T, files []string, useXz bool) []byte {
	t.Helper()
	return compressTar(t, useXz, func(tw *tar.Writer) {
		for _, name := range files {
			if name[len(name)-1] == '/' {
				writeTarDir(t, tw, name)
			} else {
				writeTarFile(t, tw, name, []byte("contents of "+name))
			}
		}
	})
}

func compressTar(t *testing.T, useXz bool, fill func(*tar.Writer)) []byte {
	t.Helper()

	var buf bytes.Buffer
	var compressor io.WriteCloser
	if useXz {
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatalf("failed to create xz writer: %v", err)
		}
		compressor = xw
	} else {
		compressor = gzip.NewWriter(&buf)
	}

	tw := tar.NewWriter(compressor)
	fill(tw)
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := compressor.Close(); err != nil {
		t.Fatalf("failed to close compressor: %v", err)
	}
	return buf.Bytes()
}

func writeTarFile(t *testing.T, tw *tar.Writer, name string, body []byte) {
	t.Helper()
	header := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(body)),
	}
	if err := tw.WriteHeader(header); err != nil {
		t.Fatalf("failed to write tar header %s: %v", name, err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatalf("failed to write tar entry %s: %v", name, err)
	}
}

func writeTarDir(t *testing.T, tw *tar.Writer, name string) {
	t.Helper()
	header := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}
	if err := tw.WriteHeader(header); err != nil {
		t.Fatalf("failed to write tar header %s: %v", name, err)
	}
}
