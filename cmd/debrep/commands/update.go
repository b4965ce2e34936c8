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
	"net/url"
	"path"
	"path/filepath"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"

	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/global"
	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/internal"
	"github.com/hixio-mh/debrepbuild/config"
	"github.com/hixio-mh/debrepbuild/fetch"
	dbhttp "github.com/hixio-mh/debrepbuild/internal/http"
)

var UpdateCommand = &cli.Command{
	Name:  "update",
	Usage: "download the direct packages named in the sources file",
	Description: `Fetches every direct package artifact into the pool. Artifacts whose
checksum already matches on disk are skipped, so repeated runs are
cheap.`,
	Flags: internal.LayoutFlags,
	Action: func(cliContext *cli.Context) error {
		cfg, err := internal.LoadConfig(cliContext)
		if err != nil {
			return err
		}
		ctx, cancel := internal.AppContext(cliContext)
		defer cancel()

		poolBase := internal.PoolBase(cliContext, cfg)
		targets, err := directTargets(cfg, poolBase)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			log.G(ctx).Info("no direct packages to fetch")
			return nil
		}

		fetcher := fetch.NewFetcher(dbhttp.NewRetryableClient(dbhttp.NewClientConfig()))
		return fetcher.FetchAll(ctx, targets, cliContext.Int64(global.LimitFlag))
	},
}

// directTargets maps every direct package URL onto its pool destination.
// Artifacts with a recorded checksum are verified after download; the
// rest are fetched once and kept as-is.
func directTargets(cfg *config.Config, poolBase string) ([]fetch.Target, error) {
	var targets []fetch.Target
	for _, direct := range cfg.Direct {
		for _, u := range direct.URLs {
			name := u.Name
			if name == "" {
				parsed, err := url.Parse(u.URL)
				if err != nil {
					return nil, err
				}
				name = path.Base(parsed.Path)
			}

			targets = append(targets, fetch.Target{
				URL:         u.URL,
				Destination: filepath.Join(poolBase, direct.Arch, name),
				Compare:     fetch.ChecksumFromHex(u.Checksum),
			})
		}
	}
	return targets, nil
}
