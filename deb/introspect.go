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

// Package deb reads Debian package archives: the outer ar container and
// the compressed tar members nested inside it.
package deb

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// codec identifies the compression of an inner tar member. The set is
// closed: debs carry their control and data members as gzip or xz.
type codec int

const (
	codecGzip codec = iota
	codecXz
)

func (c codec) reader(r io.Reader) (io.Reader, error) {
	switch c {
	case codecGzip:
		return gzip.NewReader(r)
	case codecXz:
		return xz.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown codec %d", c)
	}
}

// member locates one inner tar member within the outer container.
type member struct {
	index int
	codec codec
}

// ContentsEntry is the metadata extracted from one package archive: its
// identity from the control member and the installable file paths from
// the data member.
type ContentsEntry struct {
	Package string
	Section string
	Files   []string
}

// Qualified composes the owner name recorded in Contents indexes:
// section/package, prefixed with the branch when it is not the default
// "main".
func (e ContentsEntry) Qualified(branch string) string {
	if branch == "" || branch == "main" {
		return e.Section + "/" + e.Package
	}
	return branch + "/" + e.Section + "/" + e.Package
}

// StructuralError reports a package archive that could be read but does
// not have the expected shape, as opposed to an I/O failure.
type StructuralError struct {
	Path    string
	Element string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Path, e.Element)
}

// Introspect opens the package archive at path and extracts its
// ContentsEntry.
//
// The outer container is scanned once to locate the control and data
// members, then re-opened for each member read. Container member access
// is forward-only, so re-opening trades a couple of file opens for
// never buffering a whole archive in memory.
func Introspect(path string) (ContentsEntry, error) {
	control, data, err := scanMembers(path)
	if err != nil {
		return ContentsEntry{}, err
	}
	if control == nil || data == nil {
		return ContentsEntry{}, &StructuralError{Path: path, Element: "control and data members"}
	}

	pkg, section, err := readControl(path, *control)
	if err != nil {
		return ContentsEntry{}, err
	}

	files, err := readData(path, *data)
	if err != nil {
		return ContentsEntry{}, err
	}

	return ContentsEntry{Package: pkg, Section: section, Files: files}, nil
}

// scanMembers walks the outer container's member list, recording the
// position and codec of the control and data members. The scan stops as
// soon as both are found; member order is not significant.
func scanMembers(path string) (control, data *member, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := ar.NewReader(f)
	for i := 0; ; i++ {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}

		switch strings.TrimSuffix(header.Name, "/") {
		case "control.tar.gz":
			control = &member{index: i, codec: codecGzip}
		case "control.tar.xz":
			control = &member{index: i, codec: codecXz}
		case "data.tar.gz":
			data = &member{index: i, codec: codecGzip}
		case "data.tar.xz":
			data = &member{index: i, codec: codecXz}
		}

		if control != nil && data != nil {
			break
		}
	}
	return control, data, nil
}

// openMember re-opens the container and positions the reader at the
// recorded member, returning its decoded stream. The caller closes f.
func openMember(path string, m member) (f *os.File, decoded io.Reader, err error) {
	f, err = os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader := ar.NewReader(f)
	for i := 0; i <= m.index; i++ {
		if _, err := reader.Next(); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to seek to member %d of %s: %w", m.index, path, err)
		}
	}

	decoded, err = m.codec.reader(reader)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to decode member %d of %s: %w", m.index, path, err)
	}
	return f, decoded, nil
}

// readControl decodes the control member and pulls the Package and
// Section fields out of its ./control entry.
func readControl(path string, m member) (pkg, section string, err error) {
	f, decoded, err := openMember(path, m)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	reader := tar.NewReader(decoded)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to read control member of %s: %w", path, err)
		}
		if header.Name != "./control" {
			continue
		}

		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			line := scanner.Text()
			if value, ok := strings.CutPrefix(line, "Package:"); ok {
				pkg = strings.TrimSpace(value)
			} else if value, ok := strings.CutPrefix(line, "Section:"); ok {
				section = strings.TrimSpace(value)
			}
			if pkg != "" && section != "" {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return "", "", fmt.Errorf("failed to read control file of %s: %w", path, err)
		}
		break
	}

	if pkg == "" {
		return "", "", &StructuralError{Path: path, Element: "Package field in control member"}
	}
	if section == "" {
		return "", "", &StructuralError{Path: path, Element: "Section field in control member"}
	}
	return pkg, section, nil
}

// readData decodes the data member and collects the path of every entry
// that is not a directory. Entry contents are skipped, not read.
func readData(path string, m member) ([]string, error) {
	f, decoded, err := openMember(path, m)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	reader := tar.NewReader(decoded)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data member of %s: %w", path, err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}
		files = append(files, header.Name)
	}
	return files, nil
}
