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
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"

	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/global"
	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/internal"
	"github.com/hixio-mh/debrepbuild/contents"
	"github.com/hixio-mh/debrepbuild/generate"
)

var BuildCommand = &cli.Command{
	Name:  "build",
	Usage: "generate the dists tree from the package pool",
	Description: `Builds metapackages, indexes the pool with apt-ftparchive, writes the
Contents indexes, and signs the resulting Release file.`,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "metapackages",
			Usage: "directory of equivs control files to build before indexing",
			Value: "metapackages",
		},
		&cli.BoolFlag{
			Name:  "no-sign",
			Usage: "skip the InRelease and Release.gpg signatures",
		},
		&cli.StringSliceFlag{
			Name:  "arch",
			Usage: "restrict the build to these architectures (repeatable)",
		},
	}, internal.LayoutFlags...),
	Action: func(cliContext *cli.Context) error {
		cfg, err := internal.LoadConfig(cliContext)
		if err != nil {
			return err
		}
		ctx, cancel := internal.AppContext(cliContext)
		defer cancel()

		distBase := internal.DistsBase(cliContext, cfg)
		poolBase := internal.PoolBase(cliContext, cfg)
		limit := cliContext.Int64(global.LimitFlag)

		if dir := cliContext.String("metapackages"); dirExists(dir) {
			if err := generate.Metapackages(ctx, dir, poolBase); err != nil {
				return err
			}
		}

		suites, err := poolSuites(poolBase)
		if err != nil {
			return err
		}
		if only := cliContext.StringSlice("arch"); len(only) > 0 {
			suites = filterSuites(suites, only)
		}
		if len(suites) == 0 {
			return fmt.Errorf("no package pools found under %s", poolBase)
		}

		if err := generate.BinaryPackages(ctx, cfg, distBase, suites); err != nil {
			return err
		}
		if dirExists(filepath.Join(poolBase, "source")) {
			if err := generate.SourcesIndex(ctx, distBase, poolBase, cfg.DefaultComponent); err != nil {
				return err
			}
		}

		contentsDir := filepath.Join(distBase, cfg.DefaultComponent)
		if err := contents.BuildAll(ctx, suites, contentsDir, cfg.DefaultComponent, limit); err != nil {
			return err
		}

		archs := make([]string, len(suites))
		for i, suite := range suites {
			archs[i] = suite.Arch
		}
		if err := generate.DistsRelease(ctx, cfg, distBase, archs); err != nil {
			return err
		}

		if cliContext.Bool("no-sign") {
			log.G(ctx).Info("skipping release signatures")
			return nil
		}
		release := filepath.Join(distBase, "Release")
		if err := generate.InRelease(ctx, cfg.Email, release, filepath.Join(distBase, "InRelease")); err != nil {
			return err
		}
		return generate.ReleaseGPG(ctx, cfg.Email, release, filepath.Join(distBase, "Release.gpg"))
	},
}

// poolSuites treats each directory under the pool base as an
// architecture pool. The source pool is indexed separately.
func poolSuites(poolBase string) ([]contents.Suite, error) {
	entries, err := os.ReadDir(poolBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pool %s: %w", poolBase, err)
	}
	var suites []contents.Suite
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "source" {
			continue
		}
		suites = append(suites, contents.Suite{
			Arch:     entry.Name(),
			PoolPath: filepath.Join(poolBase, entry.Name()),
		})
	}
	return suites, nil
}

func filterSuites(suites []contents.Suite, archs []string) []contents.Suite {
	keep := make(map[string]bool, len(archs))
	for _, arch := range archs {
		keep[arch] = true
	}
	var filtered []contents.Suite
	for _, suite := range suites {
		if keep[suite.Arch] {
			filtered = append(filtered, suite)
		}
	}
	return filtered
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
