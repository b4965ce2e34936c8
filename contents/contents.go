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

// Package contents builds apt Contents indexes from pools of package
// archives.
package contents

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hixio-mh/debrepbuild/compress"
	"github.com/hixio-mh/debrepbuild/deb"
)

// Suite pairs an architecture with the pool directory holding its
// package archives.
type Suite struct {
	Arch     string
	PoolPath string
}

// ConflictError reports two packages in the same pool that both install
// the same path. Contents indexes map each path to one owner, so the
// pool cannot be indexed until one of the packages is removed.
type ConflictError struct {
	Path     string
	PackageA string
	PackageB string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("path %s is provided by both %s and %s", e.Path, e.PackageA, e.PackageB)
}

// record is one Contents line before serialization: an installed path
// and the qualified name of the package that owns it.
type record struct {
	path string
	pkg  string
}

// Build indexes one suite's pool and writes Contents-<arch>.gz and
// Contents-<arch>.xz under destDir. Contents indexes are only shipped
// compressed.
func Build(ctx context.Context, suite Suite, destDir, branch string, limit int64) error {
	records, err := mergedRecords(ctx, suite.PoolPath, branch, limit)
	if err != nil {
		return err
	}

	name := "Contents-" + suite.Arch
	n, err := compress.Compress(name, destDir, newRecordReader(records), compress.Gzip|compress.Xz)
	if err != nil {
		return err
	}

	log.G(ctx).WithFields(logrus.Fields{
		"arch":    suite.Arch,
		"records": len(records),
		"bytes":   n,
	}).Debug("wrote contents index")
	return nil
}

// BuildAll builds every suite's index concurrently. The limit bounds
// archive introspection within each suite.
func BuildAll(ctx context.Context, suites []Suite, destDir, branch string, limit int64) error {
	if limit <= 0 {
		limit = int64(runtime.GOMAXPROCS(0))
	}
	eg, ctx := errgroup.WithContext(ctx)
	for _, suite := range suites {
		suite := suite
		eg.Go(func() error {
			return Build(ctx, suite, destDir, branch, limit)
		})
	}
	return eg.Wait()
}

// mergedRecords introspects every archive under poolPath concurrently,
// flattens the results into one record list, and sorts it byte-wise by
// path. Two records with the same path make the pool unindexable and
// surface as a ConflictError.
func mergedRecords(ctx context.Context, poolPath, branch string, limit int64) ([]record, error) {
	archives, err := walkPool(poolPath)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = int64(runtime.GOMAXPROCS(0))
	}
	sem := semaphore.NewWeighted(limit)
	eg, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var records []record
	for _, archive := range archives {
		archive := archive
		eg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			entry, err := deb.Introspect(archive)
			if err != nil {
				return err
			}

			pkg := entry.Qualified(branch)
			batch := make([]record, 0, len(entry.Files))
			for _, file := range entry.Files {
				batch = append(batch, record{
					path: strings.TrimPrefix(file, "./"),
					pkg:  pkg,
				})
			}

			mu.Lock()
			records = append(records, batch...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].path != records[j].path {
			return records[i].path < records[j].path
		}
		return records[i].pkg < records[j].pkg
	})
	for i := 1; i < len(records); i++ {
		if records[i].path == records[i-1].path {
			return nil, &ConflictError{
				Path:     records[i].path,
				PackageA: records[i-1].pkg,
				PackageB: records[i].pkg,
			}
		}
	}
	return records, nil
}

// walkPool collects every regular file under root. The pool layout is
// not interpreted; anything that is not a directory is treated as a
// package archive.
func walkPool(root string) ([]string, error) {
	var archives []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk pool %s: %w", root, err)
	}
	return archives, nil
}
