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

package generate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/containerd/log"
)

// Metapackages builds every equivs control file under dir and moves the
// resulting archives into the pool. Control files live one directory
// deep, <dir>/<name>/<name>.cfg, and equivs-build drops its output in
// its working directory.
//
// Metapackages carry no compiled code, so they land in the "all" pool.
func Metapackages(ctx context.Context, dir, poolBase string) error {
	cfgs, err := filepath.Glob(filepath.Join(dir, "*", "*.cfg"))
	if err != nil {
		return fmt.Errorf("failed to glob %s: %w", dir, err)
	}

	for _, cfg := range cfgs {
		log.G(ctx).WithField("cfg", cfg).Info("generating metapackage")

		cmd := exec.CommandContext(ctx, "equivs-build", filepath.Base(cfg))
		cmd.Dir = filepath.Dir(cfg)
		cmd.Stderr = os.Stderr
		cmd.Stdout = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("equivs-build failed for %s: %w", cfg, err)
		}

		if err := moveArchives(filepath.Dir(cfg), filepath.Join(poolBase, "all")); err != nil {
			return err
		}
	}
	return nil
}

// moveArchives moves every .deb in dir into destDir.
func moveArchives(dir, destDir string) error {
	debs, err := filepath.Glob(filepath.Join(dir, "*.deb"))
	if err != nil {
		return fmt.Errorf("failed to glob %s: %w", dir, err)
	}
	if len(debs) == 0 {
		return nil
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	for _, deb := range debs {
		dest := filepath.Join(destDir, filepath.Base(deb))
		if err := os.Rename(deb, dest); err != nil {
			return fmt.Errorf("failed to move %s to pool: %w", deb, err)
		}
	}
	return nil
}
