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

package global

import (
	"github.com/urfave/cli/v2"

	"github.com/hixio-mh/debrepbuild/config"
)

// Global flags for the debrep CLI

const (
	ConfigFlag = "config"
	DebugFlag  = "debug"
	LimitFlag  = "limit"
)

var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    ConfigFlag,
		Aliases: []string{"c"},
		Usage:   "path to the repository's sources file",
		Value:   config.DefaultConfigPath,
		EnvVars: []string{"DEBREP_CONFIG"},
	},
	&cli.BoolFlag{
		Name:  DebugFlag,
		Usage: "enable debug output",
	},
	&cli.Int64Flag{
		Name:  LimitFlag,
		Usage: "bound on concurrent downloads and archive reads (0 uses GOMAXPROCS)",
	},
}
