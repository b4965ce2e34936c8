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

// Package internal holds helpers shared by the debrep commands.
package internal

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/hixio-mh/debrepbuild/cmd/debrep/commands/global"
	"github.com/hixio-mh/debrepbuild/config"
)

const (
	DistsBaseFlag = "dists-base"
	PoolBaseFlag  = "pool-base"
)

// LayoutFlags override the conventional repo/dists and repo/pool bases.
var LayoutFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  DistsBaseFlag,
		Usage: "directory the dists tree is written to (default repo/dists/<archive>)",
	},
	&cli.StringFlag{
		Name:  PoolBaseFlag,
		Usage: "directory the package pool lives in (default repo/pool/<archive>)",
	},
}

// LoadConfig reads the repository spec named by the global config flag.
func LoadConfig(cliContext *cli.Context) (*config.Config, error) {
	return config.Load(cliContext.String(global.ConfigFlag))
}

// AppContext returns a context cancelled on SIGINT or SIGTERM.
func AppContext(cliContext *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
}

// DistsBase resolves the dists tree directory for the loaded spec.
func DistsBase(cliContext *cli.Context, cfg *config.Config) string {
	if base := cliContext.String(DistsBaseFlag); base != "" {
		return base
	}
	return filepath.Join("repo", "dists", cfg.Archive)
}

// PoolBase resolves the package pool directory for the loaded spec.
func PoolBase(cliContext *cli.Context, cfg *config.Config) string {
	if base := cliContext.String(PoolBaseFlag); base != "" {
		return base
	}
	return filepath.Join("repo", "pool", cfg.Archive)
}
