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

// Package generate produces the dists tree of the repository: Packages
// and Sources indexes, Release files, and their signatures. The index
// stanzas come from apt-ftparchive and the signatures from gpg, so both
// tools must be on PATH.
package generate

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hixio-mh/debrepbuild/compress"
	"github.com/hixio-mh/debrepbuild/config"
	"github.com/hixio-mh/debrepbuild/contents"
)

// BinaryPackages generates the Packages index for every suite by
// streaming apt-ftparchive's stanzas straight into the encoders, then
// writes the per-suite Release stanza next to them.
func BinaryPackages(ctx context.Context, cfg *config.Config, distBase string, suites []contents.Suite) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, suite := range suites {
		suite := suite
		eg.Go(func() error {
			log.G(ctx).WithFields(logrus.Fields{
				"arch": suite.Arch,
				"pool": suite.PoolPath,
			}).Info("generating binary index")

			if err := os.MkdirAll(suite.PoolPath, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", suite.PoolPath, err)
			}
			outDir := filepath.Join(distBase, cfg.DefaultComponent, "binary-"+suite.Arch)

			cmd := exec.CommandContext(ctx, "apt-ftparchive", "packages", suite.PoolPath)
			cmd.Stderr = os.Stderr
			stdout, err := cmd.StdoutPipe()
			if err != nil {
				return fmt.Errorf("failed to pipe apt-ftparchive: %w", err)
			}
			if err := cmd.Start(); err != nil {
				return fmt.Errorf("failed to start apt-ftparchive: %w", err)
			}
			_, cerr := compress.Compress("Packages", outDir, stdout, compress.Uncompressed|compress.Gzip|compress.Xz)
			if cerr != nil {
				// Drain the pipe so the child can exit before Wait.
				io.Copy(io.Discard, stdout)
			}
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("apt-ftparchive packages failed for %s: %w", suite.Arch, err)
			}
			if cerr != nil {
				return cerr
			}

			stanza := suiteRelease(cfg, cfg.DefaultComponent, suite.Arch)
			if err := os.WriteFile(filepath.Join(outDir, "Release"), []byte(stanza), 0644); err != nil {
				return fmt.Errorf("failed to write suite release: %w", err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// suiteRelease renders the Release stanza placed in each binary-<arch>
// directory.
func suiteRelease(cfg *config.Config, component, arch string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive: %s\n", cfg.Archive)
	fmt.Fprintf(&b, "Version: %s\n", cfg.Version)
	fmt.Fprintf(&b, "Component: %s\n", component)
	fmt.Fprintf(&b, "Origin: %s\n", cfg.Origin)
	fmt.Fprintf(&b, "Label: %s\n", cfg.Label)
	fmt.Fprintf(&b, "Architecture: %s\n", arch)
	return b.String()
}

// SourcesIndex generates the Sources index from the source pool.
func SourcesIndex(ctx context.Context, distBase, poolBase, component string) error {
	log.G(ctx).Info("generating sources index")

	outDir := filepath.Join(distBase, component, "source")
	cmd := exec.CommandContext(ctx, "apt-ftparchive", "sources", filepath.Join(poolBase, "source"))
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to pipe apt-ftparchive: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start apt-ftparchive: %w", err)
	}
	_, cerr := compress.Compress("Sources", outDir, stdout, compress.Uncompressed|compress.Gzip|compress.Xz)
	if cerr != nil {
		io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("apt-ftparchive sources failed: %w", err)
	}
	return cerr
}

// releaseArgs renders the apt-ftparchive argument list for the dists
// Release file.
func releaseArgs(cfg *config.Config, archs []string) []string {
	set := func(key, value string) []string {
		return []string{"-o", fmt.Sprintf("APT::FTPArchive::Release::%s=%s", key, value)}
	}
	var args []string
	args = append(args, set("Origin", cfg.Origin)...)
	args = append(args, set("Label", cfg.Label)...)
	args = append(args, set("Suite", cfg.Archive)...)
	args = append(args, set("Version", cfg.Version)...)
	args = append(args, set("Codename", cfg.Archive)...)
	args = append(args, set("Architectures", strings.Join(archs, " "))...)
	args = append(args, set("Components", cfg.DefaultComponent)...)
	args = append(args, set("Description", fmt.Sprintf("%s (%s %s)", cfg.Label, cfg.Archive, cfg.Version))...)
	return append(args, "release", ".")
}

// DistsRelease generates the top-level Release file for the dists tree.
// apt-ftparchive emits relative paths, so it runs with distBase as its
// working directory.
func DistsRelease(ctx context.Context, cfg *config.Config, distBase string, archs []string) error {
	log.G(ctx).Info("generating dists release")

	cmd := exec.CommandContext(ctx, "apt-ftparchive", releaseArgs(cfg, archs)...)
	cmd.Dir = distBase
	cmd.Stderr = os.Stderr
	release, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("apt-ftparchive release failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(distBase, "Release"), release, 0644); err != nil {
		return fmt.Errorf("failed to write release: %w", err)
	}
	return nil
}

func sign(ctx context.Context, email, releasePath, outPath string, args ...string) error {
	args = append(args,
		"--local-user", email,
		"--batch", "--yes",
		"--digest-algo", "sha512",
		"-o", outPath, releasePath,
	)
	cmd := exec.CommandContext(ctx, "gpg", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gpg failed to sign %s: %w", releasePath, err)
	}
	return nil
}

// InRelease clearsigns the Release file into InRelease.
func InRelease(ctx context.Context, email, releasePath, outPath string) error {
	log.G(ctx).Info("generating InRelease")
	return sign(ctx, email, releasePath, outPath, "--clearsign")
}

// ReleaseGPG writes a detached armored signature of the Release file.
func ReleaseGPG(ctx context.Context, email, releasePath, outPath string) error {
	log.G(ctx).Info("generating Release.gpg")
	return sign(ctx, email, releasePath, outPath, "-abs")
}
